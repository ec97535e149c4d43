package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of policy spans. The engine uses the same names for the
// spans it creates.
const (
	AttrRequestID     = "lucon.request_id"
	AttrPolicyVersion = "lucon.policy.version"
	AttrPolicySource  = "lucon.policy.source"
	AttrDecision      = "lucon.decision"
	AttrRule          = "lucon.rule"
	AttrSource        = "lucon.source"
	AttrDestination   = "lucon.destination"
	AttrNode          = "lucon.node"

	AttrErrorMessage = "error.message"

	AttrHTTPMethod = "http.method"
	AttrHTTPTarget = "http.target"
	AttrHTTPScheme = "http.scheme"
	AttrHTTPStatus = "http.status_code"
	AttrUserAgent  = "user_agent.original"
)

// HTTPAttributes returns the attributes of an incoming request.
func HTTPAttributes(r *http.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, r.Method),
		attribute.String(AttrHTTPTarget, r.URL.RequestURI()),
	}
	if r.URL.Scheme != "" {
		attrs = append(attrs, attribute.String(AttrHTTPScheme, r.URL.Scheme))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String(AttrUserAgent, ua))
	}
	return attrs
}

// SetStatusCode records the response status code on a span.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
}

// SetRequestAttributes sets the request ID on a span.
func SetRequestAttributes(span trace.Span, requestID string) {
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
}

// SetDecisionAttributes records a flow decision on a span.
func SetDecisionAttributes(span trace.Span, decision, rule, policyVersion string) {
	span.SetAttributes(
		attribute.String(AttrDecision, decision),
		attribute.String(AttrRule, rule),
		attribute.String(AttrPolicyVersion, policyVersion),
	)
}
