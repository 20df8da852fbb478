package log

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type EntryType int8

const (
	CommandEntry EntryType = iota
	NoOpEntry
	ConfigurationEntry
)

var entryTypeNames = [...]string{"command", "noop", "configuration"}

func (t EntryType) String() string {
	if int(t) < 0 || int(t) >= len(entryTypeNames) {
		return fmt.Sprintf("EntryType(%d)", t)
	}
	return entryTypeNames[t]
}

// ParseEntryType is the inverse of String.
func ParseEntryType(s string) (EntryType, error) {
	for i, name := range entryTypeNames {
		if strings.EqualFold(s, name) {
			return EntryType(i), nil
		}
	}
	return 0, errors.Errorf("unknown entry type %q", s)
}

func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EntryType) UnmarshalText(text []byte) error {
	v, err := ParseEntryType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Entry is a single log record. Index is assigned by the log on append and may
// change when compaction closes gaps; term and payload never change.
type Entry struct {
	Index   int64     `json:"index"`
	Term    int64     `json:"term"`
	Type    EntryType `json:"type"`
	Command *Command  `json:"command,omitempty"`
	Members []string  `json:"members,omitempty"`
}

func NewCommandEntry(term int64, cmd *Command) Entry {
	return Entry{Term: term, Type: CommandEntry, Command: cmd}
}

func NewNoOpEntry(term int64) Entry {
	return Entry{Term: term, Type: NoOpEntry}
}

func NewConfigurationEntry(term int64, members []string) Entry {
	return Entry{Term: term, Type: ConfigurationEntry, Members: append([]string(nil), members...)}
}

// clone returns a copy that shares no memory with e.
func (e Entry) clone() Entry {
	if e.Command != nil {
		cmd := *e.Command
		cmd.Args = append([]byte(nil), cmd.Args...)
		e.Command = &cmd
	}
	if e.Members != nil {
		e.Members = append([]string(nil), e.Members...)
	}
	return e
}

// AsCommand returns the wrapped command of a command entry.
func (e *Entry) AsCommand() (*Command, error) {
	if e.Type != CommandEntry {
		return nil, errors.Wrapf(ErrTypeMismatch, "entry %d is %s", e.Index, e.Type)
	}
	if e.Command == nil {
		return nil, errors.Wrapf(ErrInvariant, "command entry %d carries no command", e.Index)
	}
	return e.Command, nil
}

func (e Entry) String() string {
	if e.Type == CommandEntry && e.Command != nil {
		return fmt.Sprintf("{index:%d term:%d %s id:%s}", e.Index, e.Term, e.Type, e.Command.ID)
	}
	return fmt.Sprintf("{index:%d term:%d %s}", e.Index, e.Term, e.Type)
}
