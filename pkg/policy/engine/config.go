package engine

import (
	"fmt"
	"time"
)

// LabelMode determines how receives_label preconditions treat requests that
// carry no label context.
type LabelMode string

const (
	// LabelModeOptional lets a request without label context pass every
	// receives_label precondition. This is the default.
	LabelModeOptional LabelMode = "optional"

	// LabelModeStrict treats a request without label context as carrying no
	// labels, so any receives_label precondition rejects it.
	LabelModeStrict LabelMode = "strict"
)

// EngineConfig contains configuration for the decision engine.
type EngineConfig struct {
	// LabelMode controls the receives_label gate.
	// Default: LabelModeOptional.
	LabelMode LabelMode

	// DecisionTimeout bounds a single decision. An expired decision is DENY.
	// Default: 100ms.
	DecisionTimeout time.Duration

	// TransformationTimeout bounds a single transformation lookup.
	// Default: 100ms.
	TransformationTimeout time.Duration

	// QueryTimeout bounds a single diagnostic query.
	// Default: 5s.
	QueryTimeout time.Duration

	// MaxSolutions caps the solutions a diagnostic query collects with
	// findAll. Decision and transformation resolution always drain their
	// searches.
	// Default: 1000.
	MaxSolutions int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		LabelMode:             LabelModeOptional,
		DecisionTimeout:       100 * time.Millisecond,
		TransformationTimeout: 100 * time.Millisecond,
		QueryTimeout:          5 * time.Second,
		MaxSolutions:          1000,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	switch c.LabelMode {
	case LabelModeOptional, LabelModeStrict:
	default:
		return fmt.Errorf("%w: invalid label mode %q", ErrInvalidConfig, c.LabelMode)
	}

	if c.DecisionTimeout <= 0 {
		return fmt.Errorf("%w: decision timeout must be positive", ErrInvalidConfig)
	}
	if c.TransformationTimeout <= 0 {
		return fmt.Errorf("%w: transformation timeout must be positive", ErrInvalidConfig)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxSolutions <= 0 {
		return fmt.Errorf("%w: max solutions must be positive", ErrInvalidConfig)
	}

	return nil
}

// WithLabelMode sets the label gate mode.
func (c *EngineConfig) WithLabelMode(mode LabelMode) *EngineConfig {
	c.LabelMode = mode
	return c
}

// WithDecisionTimeout sets the decision timeout.
func (c *EngineConfig) WithDecisionTimeout(timeout time.Duration) *EngineConfig {
	c.DecisionTimeout = timeout
	return c
}

// WithTransformationTimeout sets the transformation timeout.
func (c *EngineConfig) WithTransformationTimeout(timeout time.Duration) *EngineConfig {
	c.TransformationTimeout = timeout
	return c
}

// WithQueryTimeout sets the diagnostic query timeout.
func (c *EngineConfig) WithQueryTimeout(timeout time.Duration) *EngineConfig {
	c.QueryTimeout = timeout
	return c
}

// WithMaxSolutions sets the per-query solution cap.
func (c *EngineConfig) WithMaxSolutions(max int) *EngineConfig {
	c.MaxSolutions = max
	return c
}
