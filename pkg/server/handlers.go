package server

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/manager"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/logging"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/tracing"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// handleDecision answers POST /v1/decisions. Every well-formed request gets
// a decision; failures inside the engine are reported as DENY.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var payload DecisionPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	ctx := r.Context()
	if payload.ID == "" {
		payload.ID = logging.GetRequestID(ctx)
	}

	decision := s.engine.RequestDecision(ctx, &engine.DecisionRequest{
		ID:          payload.ID,
		Source:      payload.Source.node(),
		Destination: payload.Destination.node(),
		Attributes:  payload.Attributes,
		Labels:      payload.Labels,
	})

	tracing.SetDecisionAttributes(trace.SpanFromContext(ctx),
		string(decision.Decision), decision.Rule, decision.PolicyVersion)
	writeJSON(w, http.StatusOK, decision)
}

// handleTransformation answers POST /v1/transformations with the label
// effects of the node in the body.
func (s *Server) handleTransformation(w http.ResponseWriter, r *http.Request) {
	var payload NodePayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	node := payload.node()
	result, err := s.engine.RequestTransformations(r.Context(), &node)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePutPolicy answers PUT /v1/policy. JSON bodies use PolicyPayload;
// any other content type is taken as the theory text, named by the "name"
// query parameter.
func (s *Server) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	var payload PolicyPayload
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if !s.decodeJSON(w, r, &payload) {
			return
		}
	} else {
		text, ok := s.readText(w, r)
		if !ok {
			return
		}
		if text == "" {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "policy body is empty")
			return
		}
		payload = PolicyPayload{Name: r.URL.Query().Get("name"), Theory: text}
	}

	version, err := s.manager.ApplyPolicy(r.Context(), payload.Name, payload.Theory)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(version))
}

// handleGetPolicy answers GET /v1/policy with the active theory as text, or
// in structured form with ?format=json.
func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Policy-Version", s.engine.Theory().Version())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.engine.TheoryText()))
	case "json":
		writeJSON(w, http.StatusOK, s.engine.TheoryStructured())
	default:
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "unsupported format "+strconv.Quote(format))
	}
}

// handleRules answers GET /v1/rules.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Theory()
	rules := snap.Rules()
	if rules == nil {
		rules = []string{}
	}
	writeJSON(w, http.StatusOK, RulesResponse{PolicyVersion: snap.Version(), Rules: rules})
}

// handleQuery answers POST /v1/query with the solutions of a diagnostic
// goal.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload QueryPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	solutions, err := s.engine.Query(r.Context(), payload.Goal, payload.All)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Goal:      payload.Goal,
		Solutions: solutions,
		Count:     len(solutions),
	})
}

// handleVersions answers GET /v1/policy/versions[?limit=n].
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest,
				"limit must be an integer between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	versions, err := s.manager.History(r.Context(), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	resp := VersionsResponse{Versions: make([]VersionSummary, len(versions))}
	for i, v := range versions {
		resp.Versions[i] = summarize(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngineError maps engine and manager errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		malformed *engine.MalformedGoalError
		timeout   *engine.TimeoutError
	)

	switch {
	case errors.Is(err, engine.ErrInvalidTheory):
		writeError(w, http.StatusUnprocessableEntity, ErrorTypeInvalidTheory, err.Error())
	case errors.As(err, &malformed):
		writeError(w, http.StatusBadRequest, ErrorTypeMalformedGoal, err.Error())
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, ErrorTypeTimeout, err.Error())
	case errors.Is(err, manager.ErrNoStore), errors.Is(err, engine.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, ErrorTypeUnavailable, err.Error())
	default:
		logging.FromContext(r.Context(), s.logger).ErrorContext(r.Context(), "request failed", "error", err)
		tracing.SetError(trace.SpanFromContext(r.Context()), err)
		writeError(w, http.StatusInternalServerError, ErrorTypeInternal, "an internal error occurred")
	}
}
