// Package telemetry holds the no-op ports.Telemetry implementation, for
// callers such as tests where nothing should render progress (§1
// places a terminal UI out of scope for the core; this adapter is the
// "nothing attached" case of that boundary).
package telemetry

import (
	"context"
	"io"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// NoOp implements ports.Telemetry by discarding everything.
type NoOp struct{}

// New creates a new NoOp telemetry recorder.
func New() ports.Telemetry { return NoOp{} }

// Record returns ctx unchanged along with a vertex that discards writes.
func (NoOp) Record(ctx context.Context, id domain.Identifier, name string) (context.Context, ports.Vertex) {
	return ctx, noopVertex{}
}

// Close is a no-op.
func (NoOp) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Write(p []byte) (int, error)          { return io.Discard.Write(p) }
func (noopVertex) SetStatus(status domain.VertexStatus) {}
func (noopVertex) RecordError(err error)                {}
func (noopVertex) End()                                 {}
