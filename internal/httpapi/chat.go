package httpapi

import (
	"net/http"

	"github.com/ent0n29/prenova/internal/auth"
)

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	history, err := s.deps.Chat.History(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req chatRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.deps.Chat.ProcessTurn(r.Context(), user.ID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Response: reply})
}
