package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/store"
	"github.com/theirongolddev/ptab/internal/workflow"
)

const budgetCSV = "Activities,Projet Code,Result,Item Code,Activity Code,Amount\n" +
	"Field work,P1,R1,I1,1001,1000\n"

func newTestServer(t *testing.T) (*Service, http.Handler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ptab.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	s := New(Config{Metrics: true}, workflow.New(st, 3))
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, ctype, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expect(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, code, w.Body.String())
	}
}

// seed imports one budget line of 1000 and one issuer.
func seed(t *testing.T, h http.Handler) model.Issuer {
	t.Helper()
	expect(t, do(t, h, http.MethodPost, "/v1/budget/import?year=2024&project=PTAB", "text/csv", budgetCSV), http.StatusCreated)

	w := do(t, h, http.MethodPost, "/v1/issuers", "application/json", `{"name_ref":"iss-01","department":"finance"}`)
	expect(t, w, http.StatusCreated)
	var is model.Issuer
	decodeInto(t, w, &is)
	return is
}

func balanceOf(t *testing.T, h http.Handler) int64 {
	t.Helper()
	w := do(t, h, http.MethodGet, "/v1/balances?year=2024&project=PTAB", "", "")
	expect(t, w, http.StatusOK)
	var rows []model.BalanceRow
	decodeInto(t, w, &rows)
	if len(rows) != 1 {
		t.Fatalf("balance rows = %d, want 1", len(rows))
	}
	return rows[0].Balance
}

type draftResp struct {
	ID    string          `json:"id"`
	Draft json.RawMessage `json:"draft"`
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/healthz", "", "")
	expect(t, w, http.StatusOK)
	if w.Body.String() != "ok\n" {
		t.Fatalf("body = %q, want %q", w.Body.String(), "ok\n")
	}
}

func TestImportSetsBalance(t *testing.T) {
	_, h := newTestServer(t)
	seed(t, h)
	if got := balanceOf(t, h); got != 1000 {
		t.Fatalf("balance = %d, want 1000", got)
	}

	w := do(t, h, http.MethodPost, "/v1/budget/import?year=2024&project=PTAB", "text/csv", budgetCSV)
	expect(t, w, http.StatusBadRequest)
}

func TestRequestDraftLifecycle(t *testing.T) {
	_, h := newTestServer(t)
	is := seed(t, h)

	w := do(t, h, http.MethodPost, "/v1/drafts/requests", "application/json",
		`{"issuer_id":`+itoa(is.ID)+`,"request_type":"purchase","object":"laptops"}`)
	expect(t, w, http.StatusCreated)
	var d draftResp
	decodeInto(t, w, &d)
	base := "/v1/drafts/requests/" + d.ID

	expect(t, do(t, h, http.MethodPost, base+"/lines", "application/json", `{"activity_code":1001,"amount":600}`), http.StatusOK)

	w = do(t, h, http.MethodPost, base+"/lines", "application/json", `{"activity_code":1001,"amount":500}`)
	expect(t, w, http.StatusUnprocessableEntity)
	var e struct {
		Error apiError `json:"error"`
	}
	decodeInto(t, w, &e)
	if e.Error.Type != "insufficient_balance" {
		t.Fatalf("error type = %q, want insufficient_balance", e.Error.Type)
	}
	if e.Error.Available == nil || *e.Error.Available != 400 {
		t.Fatalf("available = %v, want 400", e.Error.Available)
	}

	expect(t, do(t, h, http.MethodPost, base+"/lines", "application/json",
		`{"activity_code":1001,"amount":9223372036854775807}`), http.StatusBadRequest)

	w = do(t, h, http.MethodPost, base+"/commit", "", "")
	expect(t, w, http.StatusCreated)
	var sub model.SubRequest
	decodeInto(t, w, &sub)
	if sub.Kind != model.SubRequestInitial {
		t.Fatalf("kind = %q, want %q", sub.Kind, model.SubRequestInitial)
	}
	if got := balanceOf(t, h); got != 400 {
		t.Fatalf("balance = %d, want 400", got)
	}

	expect(t, do(t, h, http.MethodGet, base, "", ""), http.StatusNotFound)
}

func TestReconciliationDraftLifecycle(t *testing.T) {
	_, h := newTestServer(t)
	is := seed(t, h)

	w := do(t, h, http.MethodPost, "/v1/drafts/requests", "application/json",
		`{"issuer_id":`+itoa(is.ID)+`,"request_type":"travel","object":"mission"}`)
	expect(t, w, http.StatusCreated)
	var d draftResp
	decodeInto(t, w, &d)
	expect(t, do(t, h, http.MethodPost, "/v1/drafts/requests/"+d.ID+"/lines", "application/json",
		`{"activity_code":1001,"amount":600}`), http.StatusOK)
	w = do(t, h, http.MethodPost, "/v1/drafts/requests/"+d.ID+"/commit", "", "")
	expect(t, w, http.StatusCreated)
	var sub model.SubRequest
	decodeInto(t, w, &sub)

	w = do(t, h, http.MethodPost, "/v1/drafts/reconciliations", "", "")
	expect(t, w, http.StatusCreated)
	decodeInto(t, w, &d)
	base := "/v1/drafts/reconciliations/" + d.ID

	expect(t, do(t, h, http.MethodPost, base+"/commit", "", ""), http.StatusConflict)

	expect(t, do(t, h, http.MethodPost, base+"/select", "application/json",
		`{"kind":"advance","issuer_id":`+itoa(is.ID)+`,"sub_request_id":`+itoa(sub.ID)+`}`), http.StatusOK)
	expect(t, do(t, h, http.MethodPut, base+"/lines/0", "application/json", `{"spent":250}`), http.StatusOK)
	expect(t, do(t, h, http.MethodPut, base+"/lines/3", "application/json", `{"spent":250}`), http.StatusBadRequest)

	w = do(t, h, http.MethodPost, base+"/commit", "", "")
	expect(t, w, http.StatusCreated)
	var rec model.Reconciliation
	decodeInto(t, w, &rec)
	if got := balanceOf(t, h); got != 750 {
		t.Fatalf("balance after reconciliation = %d, want 750", got)
	}

	w = do(t, h, http.MethodGet, "/v1/reconciliations/"+itoa(rec.ID), "", "")
	expect(t, w, http.StatusOK)
	var detail model.ReconciliationDetail
	decodeInto(t, w, &detail)
	if len(detail.Lines) != 1 || detail.Lines[0].Spent != 250 || detail.Lines[0].Original != 600 {
		t.Fatalf("detail lines = %+v, want one line original 600 spent 250", detail.Lines)
	}

	expect(t, do(t, h, http.MethodPost, "/v1/reconciliations/"+itoa(rec.ID)+"/cancel", "", ""), http.StatusNoContent)
	if got := balanceOf(t, h); got != 400 {
		t.Fatalf("balance after cancel = %d, want 400", got)
	}
	expect(t, do(t, h, http.MethodPost, "/v1/reconciliations/"+itoa(rec.ID)+"/cancel", "", ""), http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	_, h := newTestServer(t)

	expect(t, do(t, h, http.MethodPost, "/v1/issuers", "application/json", `{"name_ref":`), http.StatusBadRequest)
	expect(t, do(t, h, http.MethodGet, "/v1/drafts/requests/not-a-uuid", "", ""), http.StatusNotFound)
	expect(t, do(t, h, http.MethodPost, "/v1/requests/abc/cancel", "", ""), http.StatusBadRequest)
	expect(t, do(t, h, http.MethodPost, "/v1/requests/42/cancel", "", ""), http.StatusNotFound)
	expect(t, do(t, h, http.MethodGet, "/v1/reconciliations/42", "", ""), http.StatusNotFound)
	expect(t, do(t, h, http.MethodGet, "/v1/reconciliations/0", "", ""), http.StatusBadRequest)
	expect(t, do(t, h, http.MethodGet, "/v1/balances?year=soon", "", ""), http.StatusBadRequest)
	expect(t, do(t, h, http.MethodPost, "/v1/budget/import", "text/plain", "x"), http.StatusBadRequest)
}

func TestPruneAbandonsIdleDrafts(t *testing.T) {
	s, h := newTestServer(t)
	expect(t, do(t, h, http.MethodPost, "/v1/drafts/reconciliations", "", ""), http.StatusCreated)
	if n := s.reconciliations.len(); n != 1 {
		t.Fatalf("drafts = %d, want 1", n)
	}

	s.prune(time.Now())
	if n := s.reconciliations.len(); n != 1 {
		t.Fatalf("fresh draft pruned: drafts = %d, want 1", n)
	}

	s.prune(time.Now().Add(s.cfg.DraftTTL + time.Minute))
	if n := s.reconciliations.len(); n != 0 {
		t.Fatalf("drafts = %d, want 0", n)
	}
	if s.pruned != 1 {
		t.Fatalf("pruned = %d, want 1", s.pruned)
	}
}

func TestStatusAndMetrics(t *testing.T) {
	_, h := newTestServer(t)
	seed(t, h)

	w := do(t, h, http.MethodGet, "/v1/status", "", "")
	expect(t, w, http.StatusOK)
	var st Status
	decodeInto(t, w, &st)
	if st.ActorID != 3 {
		t.Fatalf("actor = %d, want 3", st.ActorID)
	}
	if st.Dashboard.TotalBudget != 1000 {
		t.Fatalf("total budget = %d, want 1000", st.Dashboard.TotalBudget)
	}

	w = do(t, h, http.MethodGet, "/metrics", "", "")
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "ptab_ledger_recalculation_duration_seconds") {
		t.Fatal("metrics output lacks the recalculation histogram")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
