package progrock_test

import (
	"context"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/telemetry/progrock"
	"github.com/pesde-pkg/pesde/internal/core/domain"
)

func TestRecorderIntegration(t *testing.T) {
	recorder := progrock.New()

	id := domain.Identifier{Source: domain.SourceRegistry, Name: "scope/pkg", Version: "1.0.0", Target: domain.TargetLuau}
	ctx, vertex := recorder.Record(context.Background(), id, "scope/pkg@1.0.0")

	if _, err := vertex.Write([]byte("downloading\n")); err != nil {
		t.Errorf("failed to write to vertex: %v", err)
	}

	vertex.SetStatus(domain.VertexStatusRunning)
	vertex.End()

	if err := recorder.Close(); err != nil {
		t.Errorf("failed to close recorder: %v", err)
	}
	_ = ctx
}
