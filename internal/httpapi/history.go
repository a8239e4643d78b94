package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/records"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// historyTables are the per-user tables a caller may list.
var historyTables = map[string]string{
	"vitals":     records.TableVitals,
	"ctg":        records.TableCTG,
	"diet_plans": records.TableDietPlans,
}

// handleRecordHistory lists the caller's own rows, newest first.
func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	table, ok := historyTables[chi.URLParam(r, "kind")]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown_record_kind", "unknown record kind")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StoreTimeout)
	defer cancel()
	rows, err := s.deps.Records.Select(ctx, table, records.Query{
		Eq:      map[string]any{records.ColumnUID: user.ID},
		OrderBy: records.ColumnCreatedAt,
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		s.writeError(w, r, &storeError{Table: table, Err: err})
		return
	}
	if rows == nil {
		rows = []records.Row{}
	}
	respondJSON(w, http.StatusOK, rows)
}
