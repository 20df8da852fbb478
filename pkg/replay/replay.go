// Package replay drives a log from a yaml script, one operation per step.
package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/wereliang/raftlog/log"
	"github.com/wereliang/raftlog/pkg/xlog"
)

const (
	OpAppend       = "append"
	OpFree         = "free"
	OpFloor        = "floor"
	OpGet          = "get"
	OpRange        = "range"
	OpRemove       = "remove"
	OpRemoveBefore = "remove_before"
	OpRemoveAfter  = "remove_after"
	OpState        = "state"
)

type Step struct {
	Op      string   `yaml:"op"`
	Term    int64    `yaml:"term"`
	Type    string   `yaml:"type"`
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Args    string   `yaml:"args"`
	Members []string `yaml:"members"`
	Index   int64    `yaml:"index"`
	Start   int64    `yaml:"start"`
	End     int64    `yaml:"end"`
}

type Script struct {
	Steps []Step `yaml:"steps"`
}

type StepResult struct {
	Step   int
	Op     string
	Output string
}

func (r StepResult) String() string {
	return fmt.Sprintf("%3d %-13s %s", r.Step, r.Op, r.Output)
}

func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse script")
	}
	for i, step := range s.Steps {
		if step.Op == "" {
			return nil, errors.Errorf("step %d: missing op", i)
		}
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Run executes the steps in order, writing one line per step to w when w is
// not nil. It stops at the first failing step.
func Run(ctx context.Context, l log.Log, s *Script, w io.Writer) ([]StepResult, error) {
	results := make([]StepResult, 0, len(s.Steps))
	for i, step := range s.Steps {
		out, err := runStep(ctx, l, step)
		if err != nil {
			xlog.Error("replay step %d (%s): %v", i, step.Op, err)
			return results, errors.Wrapf(err, "step %d (%s)", i, step.Op)
		}
		res := StepResult{Step: i, Op: step.Op, Output: out}
		results = append(results, res)
		if w != nil {
			fmt.Fprintln(w, res)
		}
	}
	return results, nil
}

func runStep(ctx context.Context, l log.Log, step Step) (string, error) {
	switch step.Op {
	case OpAppend:
		entry, err := step.entry()
		if err != nil {
			return "", err
		}
		index, err := l.Append(entry).Wait(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("index=%d", index), nil
	case OpFree:
		moves, err := l.Free(step.ID).Wait(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("id=%s relocations=%s", step.ID, formatMoves(moves)), nil
	case OpFloor:
		moves, err := l.SetFloor(step.Index).Wait(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("floor=%d relocations=%s", step.Index, formatMoves(moves)), nil
	case OpGet:
		e, err := l.Get(step.Index).Wait(ctx)
		if err != nil {
			return "", err
		}
		if e == nil {
			return fmt.Sprintf("index=%d absent", step.Index), nil
		}
		return e.String(), nil
	case OpRange:
		entries, err := l.Range(step.Start, step.End).Wait(ctx)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			parts = append(parts, e.String())
		}
		return "[" + strings.Join(parts, " ") + "]", nil
	case OpRemove:
		e, err := l.RemoveEntry(step.Index).Wait(ctx)
		if err != nil {
			return "", err
		}
		if e == nil {
			return fmt.Sprintf("index=%d absent", step.Index), nil
		}
		return "removed " + e.String(), nil
	case OpRemoveBefore:
		n, err := l.RemoveBefore(step.Index).Wait(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed=%d", n), nil
	case OpRemoveAfter:
		n, err := l.RemoveAfter(step.Index).Wait(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed=%d", n), nil
	case OpState:
		return state(ctx, l)
	}
	return "", errors.Errorf("unknown op %q", step.Op)
}

func (step Step) entry() (log.Entry, error) {
	typ := log.CommandEntry
	if step.Type != "" {
		var err error
		if typ, err = log.ParseEntryType(step.Type); err != nil {
			return log.Entry{}, err
		}
	}
	switch typ {
	case log.CommandEntry:
		cmd := log.NewCommand(step.Name, []byte(step.Args))
		if step.ID != "" {
			cmd.ID = step.ID
		}
		return log.NewCommandEntry(step.Term, cmd), nil
	case log.ConfigurationEntry:
		return log.NewConfigurationEntry(step.Term, step.Members), nil
	}
	return log.NewNoOpEntry(step.Term), nil
}

func state(ctx context.Context, l log.Log) (string, error) {
	first, err := l.FirstIndex().Wait(ctx)
	if err != nil {
		return "", err
	}
	last, err := l.LastIndex().Wait(ctx)
	if err != nil {
		return "", err
	}
	lastTerm, err := l.LastTerm().Wait(ctx)
	if err != nil {
		return "", err
	}
	floor, err := l.Floor().Wait(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("first=%d last=%d last_term=%d floor=%d", first, last, lastTerm, floor), nil
}

func formatMoves(moves []log.Relocation) string {
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		parts = append(parts, fmt.Sprintf("%d->%d", m.From, m.To))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
