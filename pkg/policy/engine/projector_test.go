package engine

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/lucon/ast"
)

func renderFacts(facts []*ast.Clause) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

func TestProjectRequest(t *testing.T) {
	req := &DecisionRequest{
		Source: ServiceNode{
			ID:         "seda:in",
			Name:       "ingest",
			Properties: map[string]string{"zone": "dmz", "owner": "ops"},
		},
		Destination: ServiceNode{ID: "hdfs://some_url"},
		Attributes: map[string]any{
			"size":      float64(42),
			"ratio":     0.5,
			"encrypted": true,
			"subject":   "x",
		},
		Labels: []string{"private", "eu", "private"},
	}

	want := []string{
		`msg_source("seda:in")`,
		`msg_destination("hdfs://some_url")`,
		`msg_source_name("ingest")`,
		`msg_source_property("owner","ops")`,
		`msg_source_property("zone","dmz")`,
		`msg_attribute("encrypted",true)`,
		`msg_attribute("ratio",0.5)`,
		`msg_attribute("size",42)`,
		`msg_attribute("subject","x")`,
		`msg_label(eu)`,
		`msg_label(private)`,
	}

	if got := renderFacts(ProjectRequest(req)); !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectRequest() =\n%v\nwant\n%v", got, want)
	}
}

func TestProjectNode(t *testing.T) {
	node := &ServiceNode{
		ID:         "paho:tcp://broker:1883",
		Name:       "broker",
		Properties: map[string]string{"qos": "1"},
	}
	want := []string{
		`node("paho:tcp://broker:1883")`,
		`node_name("broker")`,
		`node_property("qos","1")`,
	}
	if got := renderFacts(ProjectNode(node)); !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectNode() = %v, want %v", got, want)
	}
}

func TestAttributeTerm(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "abc", `"abc"`},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"integral float", float64(10), "10"},
		{"fraction", 2.25, "2.25"},
		{"json integer", json.Number("12"), "12"},
		{"json float", json.Number("1.5"), "1.5"},
		{"nil", nil, "null"},
		{"other", []int{1}, `"[1]"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ast.Format(attributeTerm(tt.value)); got != tt.want {
				t.Errorf("attributeTerm(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}
