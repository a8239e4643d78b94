package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/ent0n29/prenova/internal/records"
)

type doctorProfileRequest struct {
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
	Specialty       string `json:"specialty"`
	Location        string `json:"location"`
	ProfileImageURL string `json:"profile_image_url" validate:"omitempty,url"`
}

type doctorProfileResponse struct {
	Message string        `json:"message"`
	Data    []records.Row `json:"data"`
}

// handleCreateDoctorProfile is a public route; profiles are keyed by phone.
func (s *Server) handleCreateDoctorProfile(w http.ResponseWriter, r *http.Request) {
	var req doctorProfileRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	row := records.Row{
		"name":              strings.TrimSpace(req.Name),
		"specialty":         req.Specialty,
		"location":          req.Location,
		"profile_image_url": req.ProfileImageURL,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		row["phone"] = phone
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StoreTimeout)
	defer cancel()
	stored, err := s.deps.Records.Upsert(ctx, records.TableDoctors, row, "phone")
	if err != nil {
		s.writeError(w, r, &storeError{Table: records.TableDoctors, Err: err})
		return
	}

	respondJSON(w, http.StatusOK, doctorProfileResponse{
		Message: "Doctor profile created successfully",
		Data:    []records.Row{stored},
	})
}
