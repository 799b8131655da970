package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
	"github.com/couchcryptid/storm-risk-predictor/internal/predictor"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string       `json:"error"`
	Detail []FieldError `json:"detail,omitempty"`
}

func handlePredict(p Predictor, metrics *observability.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				metrics.PredictionErrors.WithLabelValues("validation").Inc()
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read request body"})
			return
		}

		features, details, err := decodeFeatures(body)
		if err != nil {
			logger.ErrorContext(r.Context(), "schema validation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
		if len(details) > 0 {
			metrics.PredictionErrors.WithLabelValues("validation").Inc()
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Detail: details})
			return
		}

		assessment, err := p.Predict(r.Context(), features)
		switch {
		case errors.Is(err, predictor.ErrNotReady):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: predictor.ErrNotReady.Error()})
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "prediction failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
			return
		}

		writeJSON(w, http.StatusOK, assessment)
	}
}

// decodeFeatures turns a request body into a feature vector. Client mistakes
// come back as field errors; the error return is reserved for server faults.
func decodeFeatures(body []byte) (domain.FeatureVector, []FieldError, error) {
	if !json.Valid(body) {
		return domain.FeatureVector{}, []FieldError{{Field: "body", Message: "malformed JSON"}}, nil
	}

	details, err := validatePredictBody(body)
	if err != nil || len(details) > 0 {
		return domain.FeatureVector{}, details, err
	}

	// Keys are matched exactly; a differently cased extra key never reaches the model.
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.FeatureVector{}, []FieldError{{Field: "body", Message: err.Error()}}, nil
	}
	// last_threat_count is decoded as a float so integral values like 3.0 pass.
	var values [domain.FeatureCount]float64
	for i, name := range domain.FeatureNames {
		if err := json.Unmarshal(doc[name], &values[i]); err != nil {
			return domain.FeatureVector{}, []FieldError{{Field: name, Message: err.Error()}}, nil
		}
	}
	threats := values[4]
	if math.Abs(threats) > math.MaxInt32 {
		return domain.FeatureVector{}, []FieldError{{Field: "last_threat_count", Message: "value out of range"}}, nil
	}

	return domain.FeatureVector{
		Lat:             values[0],
		Lon:             values[1],
		WindSpeed:       values[2],
		Temperature:     values[3],
		LastThreatCount: int(threats),
	}, nil, nil
}
