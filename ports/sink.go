package ports

import (
	"context"

	"hmmsynth/domain/synth"
)

// RecordSink receives exported records in index order. Implementations are
// not required to be safe for concurrent use.
type RecordSink interface {
	// SetColumns declares every record column before the first Write.
	// Records may then omit some of them.
	SetColumns(columns []string) error
	Write(ctx context.Context, index int, rec synth.Record) error
	// Close flushes buffered output. It returns the files that were written.
	Close() ([]string, error)
}
