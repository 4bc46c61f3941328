package ports

import (
	"context"
	"io"

	"github.com/pesde-pkg/pesde/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry is the entry point for recording progress vertices during the
// download/link pipeline. §1 places terminal progress UI out of scope; this
// is the "interface the core presents" an external UI would consume —
// the default implementation (internal/adapters/telemetry/progrock) just
// writes a progrock tape, and a no-op implementation
// (internal/adapters/telemetry) discards everything for callers such as
// tests that want no progress.
type Telemetry interface {
	// Record starts a new vertex for the given node and returns a context
	// carrying it plus the Vertex handle itself.
	Record(ctx context.Context, id domain.Identifier, name string) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex represents one graph node's progress through download/link.
type Vertex interface {
	io.Writer
	SetStatus(status domain.VertexStatus)
	RecordError(err error)
	End()
}
