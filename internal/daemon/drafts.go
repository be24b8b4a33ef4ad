package daemon

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/workflow"
)

// slot holds one draft. mu serializes calls into the draft, which is not
// safe for concurrent use.
type slot[D any] struct {
	mu      sync.Mutex
	draft   D
	touched time.Time
}

// drafts is a uuid-keyed registry of in-flight wizard drafts.
type drafts[D any] struct {
	mu sync.Mutex
	m  map[uuid.UUID]*slot[D]
}

func newDrafts[D any]() *drafts[D] {
	return &drafts[D]{m: make(map[uuid.UUID]*slot[D])}
}

func (d *drafts[D]) put(draft D) uuid.UUID {
	id := uuid.New()
	d.mu.Lock()
	d.m[id] = &slot[D]{draft: draft, touched: time.Now()}
	d.mu.Unlock()
	return id
}

// get returns the slot locked. The caller unlocks it.
func (d *drafts[D]) get(id uuid.UUID) (*slot[D], bool) {
	d.mu.Lock()
	sl, ok := d.m[id]
	d.mu.Unlock()
	if !ok {
		return nil, false
	}
	sl.mu.Lock()
	sl.touched = time.Now()
	return sl, true
}

func (d *drafts[D]) drop(id uuid.UUID) {
	d.mu.Lock()
	delete(d.m, id)
	d.mu.Unlock()
}

// prune removes drafts untouched since cutoff, calling abandon on each.
// Slots busy in a handler are skipped.
func (d *drafts[D]) prune(cutoff time.Time, abandon func(D)) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, sl := range d.m {
		if !sl.mu.TryLock() {
			continue
		}
		if sl.touched.Before(cutoff) {
			abandon(sl.draft)
			delete(d.m, id)
			n++
		}
		sl.mu.Unlock()
	}
	return n
}

func (d *drafts[D]) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.m)
}

// draftView is the JSON shape of every draft response.
type draftView struct {
	ID    uuid.UUID `json:"id"`
	Draft any       `json:"draft"`
}

func draftID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "draft"))
	if err != nil {
		return uuid.Nil, &model.NotFoundError{Entity: "draft", Key: chi.URLParam(r, "draft")}
	}
	return id, nil
}

func lineIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		return 0, model.Invalid("line", "must be an integer index")
	}
	return n, nil
}

// withDraft resolves the {draft} parameter and runs fn with the slot held.
func withDraft[D any](w http.ResponseWriter, r *http.Request, reg *drafts[D], fn func(id uuid.UUID, sl *slot[D])) {
	id, err := draftID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sl, ok := reg.get(id)
	if !ok {
		writeError(w, r, &model.NotFoundError{Entity: "draft", Key: id.String()})
		return
	}
	defer sl.mu.Unlock()
	fn(id, sl)
}

// Request drafts.

type newRequestBody struct {
	IssuerID           int64  `json:"issuer_id"`
	RequestType        string `json:"request_type"`
	ParentSubRequestID int64  `json:"parent_sub_request_id"`
	Object             string `json:"object"`
}

// handleNewRequestDraft starts a new request, or a complementary one when
// parent_sub_request_id is set.
func (s *Service) handleNewRequestDraft(w http.ResponseWriter, r *http.Request) {
	var body newRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		d   *workflow.RequestDraft
		err error
	)
	if body.ParentSubRequestID != 0 {
		d, err = s.wf.ComplementRequest(r.Context(), body.ParentSubRequestID, body.Object)
	} else {
		d, err = s.wf.NewRequest(r.Context(), body.IssuerID, body.RequestType, body.Object)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draftView{ID: s.requests.put(d), Draft: d})
}

func (s *Service) handleGetRequestDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.requests, func(id uuid.UUID, sl *slot[*workflow.RequestDraft]) {
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleAddRequestLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ActivityCode int64 `json:"activity_code"`
		Amount       int64 `json:"amount"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	withDraft(w, r, s.requests, func(id uuid.UUID, sl *slot[*workflow.RequestDraft]) {
		if err := sl.draft.AddLine(r.Context(), body.ActivityCode, body.Amount); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleRemoveRequestLine(w http.ResponseWriter, r *http.Request) {
	n, err := lineIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	withDraft(w, r, s.requests, func(id uuid.UUID, sl *slot[*workflow.RequestDraft]) {
		if err := sl.draft.RemoveLine(n); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

// handleCommitRequestDraft stores the draft. A committed draft leaves the
// registry; a failed one stays for correction.
func (s *Service) handleCommitRequestDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.requests, func(id uuid.UUID, sl *slot[*workflow.RequestDraft]) {
		sub, err := sl.draft.Commit(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.requests.drop(id)
		writeJSON(w, http.StatusCreated, sub)
	})
}

func (s *Service) handleAbandonRequestDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.requests, func(id uuid.UUID, sl *slot[*workflow.RequestDraft]) {
		sl.draft.Abandon()
		s.requests.drop(id)
		w.WriteHeader(http.StatusNoContent)
	})
}

// Reconciliation drafts.

func (s *Service) handleNewReconciliationDraft(w http.ResponseWriter, _ *http.Request) {
	d := s.wf.NewReconciliation()
	writeJSON(w, http.StatusCreated, draftView{ID: s.reconciliations.put(d), Draft: d})
}

func (s *Service) handleGetReconciliationDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleSelectSubRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind         string `json:"kind"`
		IssuerID     int64  `json:"issuer_id"`
		SubRequestID int64  `json:"sub_request_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		if err := sl.draft.Select(r.Context(), body.Kind, body.IssuerID, body.SubRequestID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleSetSpent(w http.ResponseWriter, r *http.Request) {
	n, err := lineIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Spent int64 `json:"spent"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		if err := sl.draft.SetSpent(n, body.Spent); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleReconciliationBack(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		if err := sl.draft.Back(); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, draftView{ID: id, Draft: sl.draft})
	})
}

func (s *Service) handleCommitReconciliationDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		rec, err := sl.draft.Commit(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.reconciliations.drop(id)
		writeJSON(w, http.StatusCreated, rec)
	})
}

func (s *Service) handleAbandonReconciliationDraft(w http.ResponseWriter, r *http.Request) {
	withDraft(w, r, s.reconciliations, func(id uuid.UUID, sl *slot[*workflow.ReconciliationDraft]) {
		sl.draft.Abandon()
		s.reconciliations.drop(id)
		w.WriteHeader(http.StatusNoContent)
	})
}
