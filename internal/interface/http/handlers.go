package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/classtrack/classtrack/internal/infrastructure/external/content"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// GRAPHQL HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// graphqlRequest mirrors content.Request with variables kept raw.
type graphqlRequest struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

// handleGraphQL answers {data: {field: result}} or {data: {field: null},
// errors: [...]}. Resolver errors are reported with status 200.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeGraphQLErrors(w, status, content.GraphQLErrorDTO{
			Message:    "malformed request body",
			Extensions: &content.ErrorExtensions{Code: content.CodeBadUserInput},
		})
		return
	}

	field, resolve, ok := s.resolvers.Lookup(req.OperationName)
	if !ok {
		writeGraphQLErrors(w, http.StatusOK, content.GraphQLErrorDTO{
			Message:    "unknown operation " + req.OperationName,
			Extensions: &content.ErrorExtensions{Code: content.CodeUnknownOp},
		})
		return
	}

	result, err := resolve(r.Context(), req.Variables)
	if err != nil {
		code := errorCode(err)
		msg := err.Error()
		if code == content.CodeInternalError {
			log.Error("resolver failed", logger.Operation(req.OperationName), logger.Err(err))
			msg = "internal server error"
		} else {
			log.Debug("resolver refused", logger.Operation(req.OperationName), slog.String("code", code), logger.Err(err))
		}

		writeJSON(w, http.StatusOK, graphqlResponse{
			Data: map[string]any{field: nil},
			Errors: []content.GraphQLErrorDTO{{
				Message:    msg,
				Path:       []any{field},
				Extensions: &content.ErrorExtensions{Code: code},
			}},
		})
		return
	}

	writeJSON(w, http.StatusOK, graphqlResponse{Data: map[string]any{field: result}})
}

type graphqlResponse struct {
	Data   map[string]any            `json:"data"`
	Errors []content.GraphQLErrorDTO `json:"errors,omitempty"`
}
