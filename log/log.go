package log

// Relocation records an entry moved by compaction.
type Relocation struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Log is the indexable command log a consensus module appends to. Indices
// start at 0. Every operation reports through a Future; implementations backed
// by disk or network may complete them later, but mutating operations complete
// in issue order.
//
// The consensus module treats any error as a fault in its persistence layer.
type Log interface {
	// Init visits the present entries in index order.
	Init(visit func(Entry) error) *Future[Void]

	// Append assigns lastIndex+1 (0 on an empty log) and stores the entry.
	Append(Entry) *Future[int64]

	Contains(index int64) *Future[bool]
	// Get returns nil when no entry is at index.
	Get(index int64) *Future[*Entry]

	// FirstIndex, LastIndex, FirstTerm and LastTerm return -1 on an empty log.
	FirstIndex() *Future[int64]
	FirstTerm() *Future[int64]
	FirstEntry() *Future[*Entry]
	LastIndex() *Future[int64]
	LastTerm() *Future[int64]
	LastEntry() *Future[*Entry]

	// Range returns the entries in [start, end) in index order.
	Range(start, end int64) *Future[[]Entry]

	// RemoveEntry deletes the entry at index regardless of floor and freed state.
	RemoveEntry(index int64) *Future[*Entry]
	// RemoveBefore deletes every entry below index and returns the count.
	RemoveBefore(index int64) *Future[int]
	// RemoveAfter deletes every entry at or above index and returns the count.
	RemoveAfter(index int64) *Future[int]

	// CommandIndex returns the index holding the command id, -1 if none.
	CommandIndex(id string) *Future[int64]
	// Free marks a command reclaimable. Commands below the floor are deleted
	// at once and the log is compacted.
	Free(id string) *Future[[]Relocation]
	FreeCommand(cmd *Command) *Future[[]Relocation]

	Floor() *Future[int64]
	// SetFloor raises the floor, deletes freed entries below it and compacts.
	SetFloor(index int64) *Future[[]Relocation]
}
