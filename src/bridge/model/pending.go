// Package model holds the repository layer models.
package model

import (
	"github.com/gofrs/uuid"
)

// OutputChunk is the repository layer model for one stdout/stderr piece.
type OutputChunk struct {
	Kind string
	Text string
}

// PendingEval is the repository layer model for an outstanding eval.
type PendingEval struct {
	UUID      uuid.UUID
	ID        string
	Code      string
	File      string
	Line      int
	Column    int
	Seq       uint64
	Chunks    []OutputChunk
	Value     string
	Namespace string
	Exception string
}
