package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/inference"
	"github.com/ent0n29/prenova/internal/observability"
	"github.com/ent0n29/prenova/internal/records"
)

type fetalRequest struct {
	Features []any `json:"features" validate:"required"`
}

type maternalResponse struct {
	Prediction string `json:"prediction"`
}

type fetalResponse struct {
	Prediction int    `json:"prediction"`
	Status     string `json:"status"`
}

func (s *Server) handlePredictMaternal(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var fields map[string]any
	if err := decodeJSON(w, r, &fields); err != nil {
		s.writeError(w, r, &requestError{Err: err})
		return
	}

	res, err := s.classify(s.deps.Maternal, func(p *inference.Pipeline) (inference.Result, error) {
		return p.ClassifyFields(fields)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	row := records.Row{records.ColumnUID: user.ID, "prediction": res.LabelID}
	for name, v := range res.Named(inference.MaternalSpec.Features) {
		row[name] = v
	}
	if err := s.insertRecord(r.Context(), records.TableVitals, row); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, maternalResponse{Prediction: res.Label})
}

func (s *Server) handlePredictFetal(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req fetalRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.classify(s.deps.Fetal, func(p *inference.Pipeline) (inference.Result, error) {
		return p.Classify(req.Features)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	row := records.Row{records.ColumnUID: user.ID, "prediction": res.LabelID, "status": res.Label}
	for name, v := range res.Named(inference.FetalSpec.Features) {
		row[name] = v
	}
	if err := s.insertRecord(r.Context(), records.TableCTG, row); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, fetalResponse{Prediction: res.LabelID, Status: res.Label})
}

func (s *Server) classify(p *inference.Pipeline, run func(*inference.Pipeline) (inference.Result, error)) (inference.Result, error) {
	if p == nil {
		return inference.Result{}, &inference.ModelError{Kind: inference.PredictionFailed, Err: errModelNotLoaded}
	}
	start := time.Now()
	res, err := run(p)
	s.metrics.ObserveStage(observability.StageClassify, time.Since(start))
	if err != nil {
		return inference.Result{}, err
	}
	if s.metrics != nil {
		s.metrics.Predictions.WithLabelValues(p.Spec().Name, res.Label).Inc()
	}
	return res, nil
}

func (s *Server) insertRecord(ctx context.Context, table string, row records.Row) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	_, err := s.deps.Records.Insert(ctx, table, row)
	s.metrics.ObserveStage(observability.StageRecordInsert, time.Since(start))
	if err != nil {
		return &storeError{Table: table, Err: err}
	}
	return nil
}
