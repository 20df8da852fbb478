package log

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/wereliang/raftlog/pkg/xlog"
)

func (l *MemoryLog) Free(id string) *Future[[]Relocation] {
	l.Lock()
	defer l.Unlock()

	index, ok := l.commands.lookup(id)
	if !ok {
		return completed[[]Relocation](nil, nil)
	}
	cmd, err := l.commandAtLocked(index)
	if err == nil && cmd.ID != id {
		err = errors.Wrapf(ErrInvariant, "command %s maps to index %d holding %s", id, index, cmd.ID)
	}
	if err != nil {
		xlog.Error("free command %s: %v", id, err)
		return failed[[]Relocation](err)
	}

	if index >= l.floor {
		l.freed[index] = struct{}{}
		return completed[[]Relocation](nil, nil)
	}
	l.deleteLocked(index)
	return completed(l.compactLocked(), nil)
}

func (l *MemoryLog) SetFloor(floor int64) *Future[[]Relocation] {
	l.Lock()
	defer l.Unlock()

	if floor < l.floor {
		err := errors.Wrapf(ErrInvariant, "floor moved back from %d to %d", l.floor, floor)
		xlog.Error("set floor: %v", err)
		return failed[[]Relocation](err)
	}

	// validate everything before the first mutation
	var doomed []int64
	for index := range l.freed {
		if index >= floor {
			continue
		}
		if _, err := l.commandAtLocked(index); err != nil {
			xlog.Error("set floor %d: %v", floor, err)
			return failed[[]Relocation](err)
		}
		doomed = append(doomed, index)
	}
	slices.Sort(doomed)

	l.floor = floor
	if len(doomed) == 0 {
		return completed[[]Relocation](nil, nil)
	}
	for _, index := range doomed {
		l.deleteLocked(index)
	}
	return completed(l.compactLocked(), nil)
}

func (l *MemoryLog) commandAtLocked(index int64) (*Command, error) {
	e, ok := l.entries.Load(index)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "index %d", index)
	}
	return e.AsCommand()
}

// compactLocked closes the gaps between first and last and returns the moves
// in the order they were applied.
func (l *MemoryLog) compactLocked() []Relocation {
	l.resetBoundsLocked()
	if l.first < 0 {
		return nil
	}

	moves := planCompaction(l.first, l.last, func(index int64) bool {
		_, ok := l.entries.Load(index)
		return ok
	})
	for _, m := range moves {
		e, _ := l.entries.LoadAndDelete(m.From)
		e.Index = m.To
		l.entries.Store(m.To, e)
		if e.Type == CommandEntry && e.Command != nil {
			l.commands.move(e.Command.ID, m.From, m.To)
		}
		if _, ok := l.freed[m.From]; ok {
			delete(l.freed, m.From)
			l.freed[m.To] = struct{}{}
		}
	}
	l.resetBoundsLocked()

	xlog.Debug("compacted log: first=%d last=%d moved=%d", l.first, l.last, len(moves))
	return moves
}

// planCompaction scans from last down to first. Vacant slots queue up in
// discovery order; each live entry found below a vacant slot takes the oldest
// queued slot and queues its own. The result packs live entries into one dense
// run ending at last.
//
// A slot is never written before it is visited, so present is only asked
// about the starting layout.
func planCompaction(first, last int64, present func(int64) bool) []Relocation {
	var (
		moves []Relocation
		empty []int64
	)
	for i := last; i >= first; i-- {
		if !present(i) {
			empty = append(empty, i)
			continue
		}
		if len(empty) > 0 {
			to := empty[0]
			empty = append(empty[1:], i)
			moves = append(moves, Relocation{From: i, To: to})
		}
	}
	return moves
}
