package log

import "github.com/pkg/errors"

var (
	// ErrNotFound reports an entry missing from an index the log believes is allocated.
	// Plain lookups report absence with a nil entry instead.
	ErrNotFound = errors.New("raftlog: entry not found")
	// ErrTypeMismatch reports command bookkeeping applied to a non command entry.
	ErrTypeMismatch = errors.New("raftlog: entry is not a command")
	// ErrInvariant reports state that contradicts the log invariants.
	ErrInvariant = errors.New("raftlog: invariant violation")
)
