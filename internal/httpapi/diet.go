package httpapi

import (
	"net/http"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/diet"
)

type dietResponse struct {
	DietPlan string `json:"diet_plan"`
}

func (s *Server) handleDietPlan(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req diet.Request
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	plan, err := s.deps.Diet.Plan(r.Context(), user.ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dietResponse{DietPlan: plan})
}
