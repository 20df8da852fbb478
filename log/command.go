package log

import "github.com/google/uuid"

// Command is an application command carried by a command entry. ID is unique per
// submission and is the key the log dedups and frees by.
type Command struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args []byte `json:"args,omitempty"`
}

func NewCommand(name string, args []byte) *Command {
	return &Command{
		ID:   uuid.NewString(),
		Name: name,
		Args: args,
	}
}

// registry maps a command id to the index of the live entry holding it.
// The latest append of an id wins.
type registry map[string]int64

func (r registry) bind(id string, index int64) {
	r[id] = index
}

func (r registry) lookup(id string) (int64, bool) {
	index, ok := r[id]
	return index, ok
}

// unbind drops id only while it still points at index, so removing an entry
// whose id was reused later keeps the newer mapping.
func (r registry) unbind(id string, index int64) {
	if cur, ok := r[id]; ok && cur == index {
		delete(r, id)
	}
}

func (r registry) move(id string, from, to int64) {
	if cur, ok := r[id]; ok && cur == from {
		r[id] = to
	}
}
