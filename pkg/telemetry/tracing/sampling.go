package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler strategies accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// SpanPolicyLoad is the span name the engine uses for policy loads.
const SpanPolicyLoad = "policy.load"

// policySampler records every policy load and leaves decisions, queries and
// HTTP spans to the configured strategy. Loads are rare and each one changes
// what later decision traces mean.
type policySampler struct {
	base sdktrace.Sampler
}

func (s policySampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if p.Name == SpanPolicyLoad {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.base.ShouldSample(p)
}

func (s policySampler) Description() string {
	return fmt.Sprintf("PolicySampler{loads=always,other=%s}", s.base.Description())
}

// createSampler builds the root sampler for strategy. A sampled traceparent
// on an incoming request is honoured whatever the strategy.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler
	switch strategy {
	case SamplerAlways:
		base = sdktrace.AlwaysSample()
	case SamplerNever:
		base = sdktrace.NeverSample()
	case SamplerRatio, "":
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		base = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy %q (valid: always, never, ratio)", strategy)
	}
	return sdktrace.ParentBased(policySampler{base: base}), nil
}
