// Package daemon serves the ptab workflows over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/sheet"
	"github.com/theirongolddev/ptab/internal/workflow"
)

// maxUpload bounds request bodies, budget sheets included.
const maxUpload = 16 << 20

// Config controls the daemon runtime behavior.
type Config struct {
	Addr     string
	Database string
	Metrics  bool
	// DraftTTL is how long an untouched draft survives before it is
	// abandoned.
	DraftTTL      time.Duration
	PruneInterval time.Duration
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time            `json:"started_at"`
	Database        string               `json:"database"`
	ActorID         int64                `json:"actor_id"`
	RequestDrafts   int                  `json:"request_drafts"`
	Reconciliations int                  `json:"reconciliation_drafts"`
	LastPruneAt     time.Time            `json:"last_prune_at,omitzero"`
	Pruned          int64                `json:"pruned_drafts"`
	Dashboard       model.DashboardStats `json:"dashboard"`
}

// Service provides the HTTP API over one workflow service.
type Service struct {
	cfg Config
	wf  *workflow.Service

	requests        *drafts[*workflow.RequestDraft]
	reconciliations *drafts[*workflow.ReconciliationDraft]

	mu          sync.RWMutex
	startedAt   time.Time
	lastPruneAt time.Time
	pruned      int64
}

// New returns a new daemon service with the provided config.
func New(cfg Config, wf *workflow.Service) *Service {
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 30 * time.Minute
	}
	if cfg.PruneInterval < time.Second {
		cfg.PruneInterval = time.Minute
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8742"
	}

	return &Service{
		cfg:             cfg,
		wf:              wf,
		requests:        newDrafts[*workflow.RequestDraft](),
		reconciliations: newDrafts[*workflow.ReconciliationDraft](),
		startedAt:       time.Now(),
	}
}

// Run serves the API and prunes idle drafts until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("ptab daemon: listening on %s", s.cfg.Addr)

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Printf("ptab daemon: shutting down")
			return server.Shutdown(shutdownCtx)
		case now := <-ticker.C:
			s.prune(now)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// prune abandons drafts untouched for longer than DraftTTL.
func (s *Service) prune(now time.Time) {
	cutoff := now.Add(-s.cfg.DraftTTL)
	n := s.requests.prune(cutoff, func(d *workflow.RequestDraft) { d.Abandon() })
	n += s.reconciliations.prune(cutoff, func(d *workflow.ReconciliationDraft) { d.Abandon() })

	s.mu.Lock()
	s.lastPruneAt = now
	s.pruned += int64(n)
	s.mu.Unlock()

	if n > 0 {
		log.Printf("ptab daemon: abandoned %d idle drafts", n)
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/balances", s.handleBalances)
		r.Post("/balances/recalculate", s.handleRecalculate)
		r.Get("/balances/verify", s.handleVerify)

		r.Post("/budget/import", s.handleImport)
		r.Post("/budget/deactivate", s.handleDeactivate)

		r.Get("/issuers", s.handleIssuers)
		r.Post("/issuers", s.handleAddIssuer)
		r.Post("/issuers/{id}/deactivate", s.handleDeactivateIssuer)

		r.Get("/requests", s.handleRequests)
		r.Post("/requests/{id}/cancel", s.handleCancelRequest)
		r.Get("/reconciliations", s.handleReconciliations)
		r.Get("/reconciliations/{id}", s.handleReconciliation)
		r.Post("/reconciliations/{id}/cancel", s.handleCancelReconciliation)

		r.Route("/drafts/requests", func(r chi.Router) {
			r.Post("/", s.handleNewRequestDraft)
			r.Get("/{draft}", s.handleGetRequestDraft)
			r.Post("/{draft}/lines", s.handleAddRequestLine)
			r.Delete("/{draft}/lines/{n}", s.handleRemoveRequestLine)
			r.Post("/{draft}/commit", s.handleCommitRequestDraft)
			r.Delete("/{draft}", s.handleAbandonRequestDraft)
		})
		r.Route("/drafts/reconciliations", func(r chi.Router) {
			r.Post("/", s.handleNewReconciliationDraft)
			r.Get("/{draft}", s.handleGetReconciliationDraft)
			r.Post("/{draft}/select", s.handleSelectSubRequest)
			r.Put("/{draft}/lines/{n}", s.handleSetSpent)
			r.Post("/{draft}/back", s.handleReconciliationBack)
			r.Post("/{draft}/commit", s.handleCommitReconciliationDraft)
			r.Delete("/{draft}", s.handleAbandonReconciliationDraft)
		})

		r.Get("/export/balances.xlsx", s.handleExportBalances)
		r.Get("/export/requests.xlsx", s.handleExportRequests)
	})

	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	dash, err := s.wf.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.RLock()
	st := Status{
		StartedAt:       s.startedAt,
		Database:        s.cfg.Database,
		ActorID:         s.wf.Actor(),
		RequestDrafts:   s.requests.len(),
		Reconciliations: s.reconciliations.len(),
		LastPruneAt:     s.lastPruneAt,
		Pruned:          s.pruned,
		Dashboard:       dash,
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.BalanceFilter{Project: q.Get("project"), ActivityCode: q.Get("activity")}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, model.Invalid("year", fmt.Sprintf("%q is not a year", v)))
			return
		}
		f.Year = year
	}
	rows, err := s.wf.Balances(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

func (s *Service) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.Recalculate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
	drift, err := s.wf.Verify(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(drift))
}

type importBody struct {
	Year    int               `json:"year"`
	Project string            `json:"project"`
	Rows    []model.BudgetRow `json:"rows"`
}

// handleImport accepts either a JSON body or a raw csv/xlsx sheet with year
// and project in the query string.
func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	var body importBody
	ctype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ctype {
	case "application/json":
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	case "text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		ext := ".csv"
		if ctype != "text/csv" {
			ext = ".xlsx"
		}
		rows, err := sheet.Read(r.Body, ext)
		if err != nil {
			writeError(w, r, err)
			return
		}
		body.Rows = rows
		body.Project = r.URL.Query().Get("project")
		if v := r.URL.Query().Get("year"); v != "" {
			if body.Year, err = strconv.Atoi(v); err != nil {
				writeError(w, r, model.Invalid("year", fmt.Sprintf("%q is not a year", v)))
				return
			}
		}
	default:
		writeError(w, r, model.Invalid("content-type", fmt.Sprintf("unsupported %q", ctype)))
		return
	}

	lines, err := s.wf.ImportBudget(r.Context(), body.Year, body.Project, body.Rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lines)
}

func (s *Service) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Year    int    `json:"year"`
		Project string `json:"project"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.wf.DeactivateBudget(r.Context(), body.Year, body.Project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deactivated": n})
}

func (s *Service) handleIssuers(w http.ResponseWriter, r *http.Request) {
	issuers, err := s.wf.ListIssuers(r.Context(), r.URL.Query().Get("all") == "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(issuers))
}

func (s *Service) handleAddIssuer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NameRef    string `json:"name_ref"`
		Department string `json:"department"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	is, err := s.wf.AddIssuer(r.Context(), body.NameRef, body.Department)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, is)
}

func (s *Service) handleDeactivateIssuer(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.wf.DeactivateIssuer)
}

func (s *Service) handleRequests(w http.ResponseWriter, r *http.Request) {
	rows, err := s.wf.SubRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

func (s *Service) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.wf.CancelSubRequest)
}

func (s *Service) handleReconciliations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.wf.Reconciliations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

func (s *Service) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.wf.ReconciliationDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Service) handleCancelReconciliation(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.wf.CancelReconciliation)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

// byID runs fn on the {id} path parameter and answers 204.
func (s *Service) byID(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Service) handleExportBalances(w http.ResponseWriter, r *http.Request) {
	rows, err := s.wf.Balances(r.Context(), model.BalanceFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="balances.xlsx"`)
	if err := sheet.WriteBalances(w, rows); err != nil {
		log.Printf("ptab daemon: export balances: %v", err)
	}
}

func (s *Service) handleExportRequests(w http.ResponseWriter, r *http.Request) {
	rows, err := s.wf.SubRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="requests.xlsx"`)
	if err := sheet.WriteRequests(w, rows); err != nil {
		log.Printf("ptab daemon: export requests: %v", err)
	}
}

// decode reads a JSON body. Malformed input is a validation error.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.Invalid("body", err.Error())
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Available *int64 `json:"available,omitempty"`
	Requested *int64 `json:"requested,omitempty"`
}

// classify maps a workflow error to an HTTP status and error type.
func classify(err error) (int, string) {
	var ib *model.InsufficientBalanceError
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case model.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrConflictingRegularisation):
		return http.StatusConflict, "conflicting_regularisation"
	case errors.As(err, &ib):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	body := apiError{Message: err.Error(), Type: kind}

	var ib *model.InsufficientBalanceError
	if errors.As(err, &ib) {
		body.Available, body.Requested = &ib.Available, &ib.Requested
	}
	if status == http.StatusInternalServerError {
		log.Printf("ptab daemon: %s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
	writeJSON(w, status, map[string]apiError{"error": body})
}
