package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/scenegen/internal/api/response"
	"github.com/kiranshivaraju/scenegen/internal/runs"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

const (
	defaultRowLimit = 50
	maxRowLimit     = 500
)

// RunService defines the interface the run handlers depend on.
type RunService interface {
	Trigger(ctx context.Context, params runs.TriggerParams) (*models.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Run, error)
	Rows(ctx context.Context, id uuid.UUID) ([]*models.RowResult, error)
}

// NewTriggerRunHandler returns an http.HandlerFunc for POST /api/v1/runs.
// The body is optional; {"mode": "refine"} selects refine mode.
func NewTriggerRunHandler(svc RunService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}

		run, err := svc.Trigger(r.Context(), runs.TriggerParams{Mode: req.Mode})
		if err != nil {
			switch {
			case errors.Is(err, runs.ErrInvalidMode):
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
					"mode must be generate or refine", nil)
			case errors.Is(err, runs.ErrRunInProgress):
				response.Error(w, http.StatusConflict, response.CodeRunInProgress,
					"Another run is still processing the catalog", nil)
			default:
				response.Internal(w)
			}
			return
		}

		response.Accepted(w, map[string]any{
			"run_id": run.ID,
			"status": run.Status,
			"mode":   run.Mode,
		})
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
func NewGetRunHandler(svc RunService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runID(w, r)
		if !ok {
			return
		}

		run, err := svc.Get(r.Context(), id)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		response.JSON(w, run)
	}
}

// NewListRowsHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}/rows.
// Supports ?page= and ?limit= (default 50, max 500).
func NewListRowsHandler(svc RunService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runID(w, r)
		if !ok {
			return
		}

		rows, err := svc.Rows(r.Context(), id)
		if err != nil {
			writeLookupError(w, err)
			return
		}

		start, end, meta := response.Paginate(len(rows), queryInt(r, "page", 1), queryInt(r, "limit", defaultRowLimit), maxRowLimit)
		response.Collection(w, rows[start:end], meta)
	}
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "runID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, runs.ErrNotFound) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Run not found", nil)
		return
	}
	response.Internal(w)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
