package httpapi

import (
	"errors"
	"net/http"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/conversation"
	"github.com/ent0n29/prenova/internal/inference"
)

var errModelNotLoaded = errors.New("model not loaded")

// storeError wraps a failed record write.
type storeError struct {
	Table string
	Err   error
}

func (e *storeError) Error() string {
	return "database request failed: " + e.Err.Error()
}

func (e *storeError) Unwrap() error { return e.Err }

// requestError marks a body that could not be decoded or failed validation.
type requestError struct {
	Err error
}

func (e *requestError) Error() string {
	if errors.Is(e.Err, errEmptyBody) {
		return "request body is required"
	}
	return "invalid request: " + e.Err.Error()
}

func (e *requestError) Unwrap() error { return e.Err }

// writeError maps component errors onto the HTTP error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		aerr *auth.Error
		verr *inference.ValidationError
		merr *inference.ModelError
		cerr *conversation.ChatError
		rerr *requestError
		serr *storeError
	)
	switch {
	case errors.As(err, &aerr):
		respondError(w, http.StatusUnauthorized, "unauthorized", aerr.Error())
	case errors.As(err, &rerr):
		respondError(w, http.StatusBadRequest, "invalid_request", rerr.Error())
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "invalid_features", verr.Error())
	case errors.As(err, &merr):
		s.logger.Error("model failure", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, string(merr.Kind), merr.Error())
	case errors.As(err, &cerr):
		respondError(w, http.StatusInternalServerError, string(cerr.Kind), cerr.Error())
	case errors.As(err, &serr):
		s.logger.Error("record write failed", "table", serr.Table, "error", serr.Err)
		respondError(w, http.StatusInternalServerError, "store_failure", serr.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
