package log

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zhangyunhao116/skipmap"
)

type entryMap = skipmap.FuncMap[int64, Entry]

// MemoryLog keeps entries in an ordered skip list keyed by index.
// The embedded lock guards entries, commands, freed and floor as one unit.
type MemoryLog struct {
	sync.RWMutex
	entries  *entryMap
	commands registry
	freed    map[int64]struct{}
	floor    int64
	first    int64 // -1 when empty
	last     int64 // -1 when empty
}

type Option func(*MemoryLog)

// WithFloor starts the log with a raised floor.
func WithFloor(floor int64) Option {
	return func(l *MemoryLog) {
		if floor > 0 {
			l.floor = floor
		}
	}
}

func NewMemLog(opts ...Option) *MemoryLog {
	l := &MemoryLog{
		entries: skipmap.NewFunc[int64, Entry](func(a, b int64) bool {
			return a < b
		}),
		commands: make(registry),
		freed:    make(map[int64]struct{}),
		first:    -1,
		last:     -1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Log = (*MemoryLog)(nil)

func (l *MemoryLog) Init(visit func(Entry) error) *Future[Void] {
	l.RLock()
	snapshot := make([]Entry, 0, l.entries.Len())
	l.entries.Range(func(_ int64, e Entry) bool {
		snapshot = append(snapshot, e.clone())
		return true
	})
	l.RUnlock()

	// visit runs unlocked so it may call back into the log
	for _, e := range snapshot {
		if err := visit(e); err != nil {
			return failed[Void](errors.Wrapf(err, "visit entry %d", e.Index))
		}
	}
	return completed(Void{}, nil)
}

func (l *MemoryLog) Append(e Entry) *Future[int64] {
	var cmd *Command
	if e.Type == CommandEntry {
		c, err := e.AsCommand()
		if err != nil {
			return failed[int64](err)
		}
		cmd = c
	}

	l.Lock()
	defer l.Unlock()

	index := l.last + 1
	if _, ok := l.entries.Load(index); ok {
		return failed[int64](errors.Wrapf(ErrInvariant, "index %d already present", index))
	}
	e = e.clone()
	e.Index = index
	l.entries.Store(index, e)
	if l.first < 0 {
		l.first = index
	}
	l.last = index
	if cmd != nil {
		l.commands.bind(cmd.ID, index)
	}
	return completed(index, nil)
}

func (l *MemoryLog) Contains(index int64) *Future[bool] {
	l.RLock()
	defer l.RUnlock()
	_, ok := l.entries.Load(index)
	return completed(ok, nil)
}

func (l *MemoryLog) Get(index int64) *Future[*Entry] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.getLocked(index), nil)
}

func (l *MemoryLog) FirstIndex() *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.first, nil)
}

func (l *MemoryLog) FirstTerm() *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.termLocked(l.first), nil)
}

func (l *MemoryLog) FirstEntry() *Future[*Entry] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.getLocked(l.first), nil)
}

func (l *MemoryLog) LastIndex() *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.last, nil)
}

func (l *MemoryLog) LastTerm() *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.termLocked(l.last), nil)
}

func (l *MemoryLog) LastEntry() *Future[*Entry] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.getLocked(l.last), nil)
}

func (l *MemoryLog) Range(start, end int64) *Future[[]Entry] {
	l.RLock()
	defer l.RUnlock()
	entries := make([]Entry, 0)
	if start >= end || l.first < 0 {
		return completed(entries, nil)
	}
	l.entries.Range(func(index int64, e Entry) bool {
		if index >= end {
			return false
		}
		if index >= start {
			entries = append(entries, e.clone())
		}
		return true
	})
	return completed(entries, nil)
}

func (l *MemoryLog) RemoveEntry(index int64) *Future[*Entry] {
	l.Lock()
	defer l.Unlock()
	e, ok := l.deleteLocked(index)
	if !ok {
		return completed[*Entry](nil, nil)
	}
	l.resetBoundsLocked()
	e = e.clone()
	return completed(&e, nil)
}

func (l *MemoryLog) RemoveBefore(index int64) *Future[int] {
	l.Lock()
	defer l.Unlock()
	return completed(l.removeRangeLocked(l.first, index), nil)
}

func (l *MemoryLog) RemoveAfter(index int64) *Future[int] {
	l.Lock()
	defer l.Unlock()
	return completed(l.removeRangeLocked(index, l.last+1), nil)
}

func (l *MemoryLog) CommandIndex(id string) *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	index, ok := l.commands.lookup(id)
	if !ok {
		return completed(int64(-1), nil)
	}
	return completed(index, nil)
}

func (l *MemoryLog) FreeCommand(cmd *Command) *Future[[]Relocation] {
	return l.Free(cmd.ID)
}

func (l *MemoryLog) Floor() *Future[int64] {
	l.RLock()
	defer l.RUnlock()
	return completed(l.floor, nil)
}

func (l *MemoryLog) getLocked(index int64) *Entry {
	if index < 0 {
		return nil
	}
	e, ok := l.entries.Load(index)
	if !ok {
		return nil
	}
	e = e.clone()
	return &e
}

func (l *MemoryLog) termLocked(index int64) int64 {
	if e := l.getLocked(index); e != nil {
		return e.Term
	}
	return -1
}

// deleteLocked removes the entry at index together with its command mapping
// and freed mark. Bounds are left stale.
func (l *MemoryLog) deleteLocked(index int64) (Entry, bool) {
	e, ok := l.entries.LoadAndDelete(index)
	if !ok {
		return e, false
	}
	delete(l.freed, index)
	if e.Type == CommandEntry && e.Command != nil {
		l.commands.unbind(e.Command.ID, index)
	}
	return e, true
}

func (l *MemoryLog) removeRangeLocked(start, end int64) int {
	if l.first < 0 || start >= end {
		return 0
	}
	var doomed []int64
	l.entries.Range(func(index int64, _ Entry) bool {
		if index >= end {
			return false
		}
		if index >= start {
			doomed = append(doomed, index)
		}
		return true
	})
	for _, index := range doomed {
		l.deleteLocked(index)
	}
	if len(doomed) > 0 {
		l.resetBoundsLocked()
	}
	return len(doomed)
}

// resetBoundsLocked recomputes first and last after deletions or moves.
// Neither can place a key above the previous last.
func (l *MemoryLog) resetBoundsLocked() {
	if l.entries.Len() == 0 {
		l.first, l.last = -1, -1
		return
	}
	l.entries.Range(func(index int64, _ Entry) bool {
		l.first = index
		return false
	})
	for l.last > l.first {
		if _, ok := l.entries.Load(l.last); ok {
			break
		}
		l.last--
	}
}
