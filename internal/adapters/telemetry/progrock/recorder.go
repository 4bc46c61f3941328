// Package progrock provides the Progrock implementation of the telemetry adapter.
package progrock

import (
	"context"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// Recorder implements ports.Telemetry using the progrock library, rendering
// one vertex per graph node the downloader acquires.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a new Recorder with a default tape.
func New() ports.Telemetry {
	tape := progrock.NewTape()
	return NewRecorder(tape)
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{w: w, rec: progrock.NewRecorder(w)}
}

// Record starts a vertex for id, digesting its identifier key so the same
// node produces the same vertex digest across runs.
func (r *Recorder) Record(ctx context.Context, id domain.Identifier, name string) (context.Context, ports.Vertex) {
	d := digest.FromString(id.Key())
	v := r.rec.Vertex(d, name)
	vertex := &Vertex{vertex: v}
	return ctx, vertex
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
