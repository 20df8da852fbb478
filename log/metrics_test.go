package log

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedLog(t *testing.T) {
	reg := prometheus.NewRegistry()
	l, err := NewInstrumentedLog(NewMemLog(), reg)
	require.NoError(t, err)
	m := l.(*instrumentedLog).m

	appendCommands(t, l, "a", "b", "c", "d", "e")
	assert.EqualValues(t, 5, testutil.ToFloat64(m.appends))
	assert.EqualValues(t, 4, testutil.ToFloat64(m.lastIndex))

	must(t, l.FreeCommand(&Command{ID: "c"}))
	must(t, l.SetFloor(3))
	assert.EqualValues(t, 1, testutil.ToFloat64(m.frees))
	assert.EqualValues(t, 2, testutil.ToFloat64(m.relocations))
	assert.EqualValues(t, 3, testutil.ToFloat64(m.floor))

	must(t, l.RemoveEntry(4))
	assert.EqualValues(t, 3, testutil.ToFloat64(m.lastIndex))
	must(t, l.RemoveAfter(3))
	assert.EqualValues(t, 2, testutil.ToFloat64(m.removed))
	assert.EqualValues(t, 2, testutil.ToFloat64(m.lastIndex))

	_, err = l.SetFloor(1).Result()
	require.Error(t, err)
	assert.EqualValues(t, 1, testutil.ToFloat64(m.errors.WithLabelValues("set_floor")))
	assert.EqualValues(t, 3, testutil.ToFloat64(m.floor))

	// reads pass straight through
	assert.EqualValues(t, 1, must(t, l.FirstIndex()))

	_, err = NewInstrumentedLog(NewMemLog(), reg)
	assert.Error(t, err, "duplicate registration")
}

func TestInstrumentedLogLastIndexFollowsRemovals(t *testing.T) {
	l, err := NewInstrumentedLog(NewMemLog(), prometheus.NewRegistry())
	require.NoError(t, err)
	m := l.(*instrumentedLog).m
	assert.EqualValues(t, -1, testutil.ToFloat64(m.lastIndex))

	appendCommands(t, l, "a", "b")
	must(t, l.SetFloor(5))
	must(t, l.Free("b"))
	assert.EqualValues(t, 0, testutil.ToFloat64(m.lastIndex))

	must(t, l.RemoveEntry(0))
	assert.EqualValues(t, -1, testutil.ToFloat64(m.lastIndex))
}
