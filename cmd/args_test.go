package cmd

import (
	"testing"

	"github.com/theirongolddev/ptab/internal/model"
)

func TestParseLines(t *testing.T) {
	got, err := parseLines([]string{"1001=600", " 1002 = 1 250 "})
	if err != nil {
		t.Fatalf("parseLines: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].code != 1001 || got[0].amount != 600 {
		t.Errorf("line 0 = %+v, want {1001 600}", got[0])
	}
	if got[1].code != 1002 || got[1].amount != 1250 {
		t.Errorf("line 1 = %+v, want {1002 1250}", got[1])
	}

	for _, bad := range []string{"1001", "x=5", "1001=2.5"} {
		if _, err := parseLines([]string{bad}); !model.IsValidation(err) {
			t.Errorf("parseLines(%q) err = %v, want validation error", bad, err)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("#12", "sub-request"); err != nil || id != 12 {
		t.Fatalf("parseID(#12) = %d, %v, want 12", id, err)
	}
	if _, err := parseID("0", "sub-request"); err == nil {
		t.Fatal("parseID(0) succeeded")
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"serve", "--addr", ":9000"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}
}
