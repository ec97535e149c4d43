package logging

import (
	"context"
	"io"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
)

func BenchmarkLogger_Filtered(b *testing.B) {
	logger, err := New(config.LoggingConfig{Level: "info"}, Options{Writer: io.Discard})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("decision resolved", "rule", "r1")
	}
}

func BenchmarkFromContext(b *testing.B) {
	logger, err := New(config.LoggingConfig{Level: "info"}, Options{Writer: io.Discard})
	if err != nil {
		b.Fatal(err)
	}
	ctx := WithRequestID(context.Background(), "req-123")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FromContext(ctx, logger).Info("decision resolved", "rule", "r1")
	}
}
