package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoroch-app/khoroch/internal/domain/invariant"
	"github.com/khoroch-app/khoroch/internal/domain/pipeline"
)

// messageRequest is one inbound chat message from the transport.
type messageRequest struct {
	UserID            string `json:"user_id"`
	MessageID         string `json:"message_id"`
	Text              string `json:"text"`
	CorrectionContext bool   `json:"correction_context"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// newRouter builds the HTTP surface: the message endpoint, health and
// metrics.
func newRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", handleMessage(deps))
	mux.HandleFunc("GET /v1/users/{user_id}/summary", handleSummary(deps))
	mux.HandleFunc("GET /healthz", handleHealth(deps))
	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

// handleMessage routes one message through the pipeline. A user with a
// pending clarification gets their reply resolved before any other handling.
func handleMessage(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if req.UserID == "" || req.MessageID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and message_id are required"})
			return
		}

		var (
			result pipeline.Result
			err    error
		)
		if deps.Pipeline.HasPendingClarification(req.UserID) {
			result, err = deps.Pipeline.ResolveClarification(r.Context(), req.UserID, req.Text)
		} else {
			result, err = deps.Pipeline.ParseAndClassify(r.Context(), pipeline.Message{
				UserID:            req.UserID,
				MessageID:         req.MessageID,
				Text:              req.Text,
				CorrectionContext: req.CorrectionContext,
			})
		}
		if err != nil {
			var violation *invariant.Violation
			if errors.As(err, &violation) {
				// Programming error upstream, not a transient condition.
				writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: violation.Error()})
				return
			}
			deps.Logger.Error("pipeline invocation failed",
				slog.String("user_id", req.UserID),
				slog.Any("error", err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// handleSummary returns the user's generated spending summary. A flagged
// summary is still served; the finding is carried in the body for auditing.
func handleSummary(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
			return
		}

		summary, err := deps.Insights.SpendingSummary(r.Context(), userID)
		if err != nil {
			deps.Logger.Error("summary generation failed",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// handleHealth reports OK only while the storage layer's own source
// allow-list enforcement is verifiably active.
func handleHealth(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := deps.Invariants.CheckStorage(r.Context(), deps.ExpenseStore)
		code := http.StatusOK
		if status != invariant.HealthOK {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
