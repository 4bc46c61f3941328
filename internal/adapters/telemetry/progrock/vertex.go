package progrock

import (
	"github.com/vito/progrock"
	"github.com/pesde-pkg/pesde/internal/core/domain"
)

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Write sends bytes to the vertex's stdout stream, satisfying io.Writer so
// a Vertex can be passed directly as a download/unpack progress sink.
func (v *Vertex) Write(p []byte) (int, error) {
	return v.vertex.Stdout().Write(p)
}

// SetStatus reflects a domain.VertexStatus onto the underlying recorder.
// progrock itself only distinguishes "cached" from everything else at the
// vertex level; intermediate states surface as stdout log lines.
func (v *Vertex) SetStatus(status domain.VertexStatus) {
	switch status {
	case domain.VertexStatusCached:
		v.vertex.Cached()
	case domain.VertexStatusCompleted:
		v.vertex.Done(nil)
	default:
		_, _ = v.vertex.Stdout().Write([]byte("[" + string(status) + "]\n"))
	}
}

// RecordError marks the vertex done with the given error.
func (v *Vertex) RecordError(err error) {
	v.vertex.Done(err)
}

// End marks the vertex as finished successfully, if not already completed.
func (v *Vertex) End() {
	v.vertex.Done(nil)
}
