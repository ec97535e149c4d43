package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
)

// Error types reported in error responses.
const (
	ErrorTypeInvalidRequest = "invalid_request"
	ErrorTypeInvalidTheory  = "invalid_theory"
	ErrorTypeMalformedGoal  = "malformed_goal"
	ErrorTypeTimeout        = "timeout"
	ErrorTypeUnavailable    = "unavailable"
	ErrorTypeInternal       = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Message string   `json:"message"`
	Type    string   `json:"type"`
	Details []string `json:"details,omitempty"`
}

// NodePayload describes a service endpoint.
type NodePayload struct {
	ID         string            `json:"id" validate:"required,max=2048"`
	Name       string            `json:"name,omitempty" validate:"max=256"`
	Properties map[string]string `json:"properties,omitempty" validate:"max=64"`
}

func (n NodePayload) node() engine.ServiceNode {
	return engine.ServiceNode{ID: n.ID, Name: n.Name, Properties: n.Properties}
}

// DecisionPayload is the body of POST /v1/decisions. Omitting labels means
// the message carries no label context; an empty list means no labels.
type DecisionPayload struct {
	ID          string         `json:"id,omitempty" validate:"max=128"`
	Source      NodePayload    `json:"source"`
	Destination NodePayload    `json:"destination"`
	Attributes  map[string]any `json:"attributes,omitempty" validate:"max=256"`
	Labels      []string       `json:"labels" validate:"omitempty,max=256,dive,required,max=256"`
}

// PolicyPayload is the JSON form of PUT /v1/policy. Plain-text bodies are
// accepted as well.
type PolicyPayload struct {
	Name   string `json:"name,omitempty" validate:"max=256"`
	Theory string `json:"theory" validate:"required"`
}

// QueryPayload is the body of POST /v1/query.
type QueryPayload struct {
	Goal string `json:"goal" validate:"required,max=65536"`
	All  bool   `json:"all,omitempty"`
}

// QueryResponse lists the solutions of a diagnostic goal.
type QueryResponse struct {
	Goal      string            `json:"goal"`
	Solutions []engine.Solution `json:"solutions"`
	Count     int               `json:"count"`
}

// RulesResponse lists the rules of the active theory.
type RulesResponse struct {
	PolicyVersion string   `json:"policy_version"`
	Rules         []string `json:"rules"`
}

// VersionSummary describes a recorded policy version without its text.
type VersionSummary struct {
	ID       string    `json:"id"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
	Source   string    `json:"source"`
	Rules    int       `json:"rules"`
	Clauses  int       `json:"clauses"`
}

func summarize(v *store.Version) VersionSummary {
	return VersionSummary{
		ID:       v.ID,
		Checksum: v.Checksum,
		LoadedAt: v.LoadedAt,
		Source:   v.Source,
		Rules:    v.Rules,
		Clauses:  v.Clauses,
	}
}

// VersionsResponse lists recorded policy versions, newest first.
type VersionsResponse struct {
	Versions []VersionSummary `json:"versions"`
}

// newValidator returns a validator reporting fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it. Numbers are kept
// as json.Number so integral attributes stay integers.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorTypeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "request body must contain a single JSON object")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
			return false
		}
		details := make([]string, len(verrs))
		for i, fe := range verrs {
			details[i] = describeFieldError(fe)
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Message: "request validation failed",
			Type:    ErrorTypeInvalidRequest,
			Details: details,
		}})
		return false
	}
	return true
}

// readText reads a plain-text body up to the configured limit.
func (s *Server) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorTypeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return "", false
		}
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "failed to read body: "+err.Error())
		return "", false
	}
	return string(data), true
}

// describeFieldError renders a validation failure as "path: rule".
func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: %s=%s", path, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: %s", path, fe.Tag())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Message: message, Type: errorType}})
}
