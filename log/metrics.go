package log

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "raftlog"

type logMetrics struct {
	appends     prometheus.Counter
	frees       prometheus.Counter
	removed     prometheus.Counter
	relocations prometheus.Counter
	errors      *prometheus.CounterVec
	floor       prometheus.Gauge
	lastIndex   prometheus.Gauge
}

func newLogMetrics() *logMetrics {
	return &logMetrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "appends_total",
			Help:      "Entries appended to the log.",
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frees_total",
			Help:      "Free requests accepted by the log.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "removed_entries_total",
			Help:      "Entries removed by explicit removal or truncation.",
		}),
		relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "relocations_total",
			Help:      "Entries moved by gap-closing compaction.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Failed log operations.",
		}, []string{"op"}),
		floor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "floor",
			Help:      "Current compaction floor.",
		}),
		lastIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_index",
			Help:      "Index of the last entry in the log, -1 when empty.",
		}),
	}
}

func (m *logMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.appends, m.frees, m.removed, m.relocations, m.errors, m.floor, m.lastIndex,
	}
}

// instrumentedLog observes the futures of the wrapped log without changing them.
type instrumentedLog struct {
	Log
	m *logMetrics
}

// NewInstrumentedLog wraps inner and registers its collectors with reg.
func NewInstrumentedLog(inner Log, reg prometheus.Registerer) (Log, error) {
	m := newLogMetrics()
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if floor, err := inner.Floor().Result(); err == nil {
		m.floor.Set(float64(floor))
	}
	l := &instrumentedLog{Log: inner, m: m}
	l.syncLastIndex()
	return l, nil
}

func (l *instrumentedLog) failed(op string, err error) bool {
	if err != nil {
		l.m.errors.WithLabelValues(op).Inc()
		return true
	}
	return false
}

// syncLastIndex reads the bound back after operations that may lower it.
func (l *instrumentedLog) syncLastIndex() {
	if last, err := l.Log.LastIndex().Result(); err == nil {
		l.m.lastIndex.Set(float64(last))
	}
}

func (l *instrumentedLog) Append(e Entry) *Future[int64] {
	f := l.Log.Append(e)
	f.OnComplete(func(index int64, err error) {
		if l.failed("append", err) {
			return
		}
		l.m.appends.Inc()
		l.m.lastIndex.Set(float64(index))
	})
	return f
}

func (l *instrumentedLog) RemoveEntry(index int64) *Future[*Entry] {
	f := l.Log.RemoveEntry(index)
	f.OnComplete(func(e *Entry, err error) {
		if !l.failed("remove", err) && e != nil {
			l.m.removed.Inc()
			l.syncLastIndex()
		}
	})
	return f
}

func (l *instrumentedLog) RemoveBefore(index int64) *Future[int] {
	return l.observeRemoved("remove_before", l.Log.RemoveBefore(index))
}

func (l *instrumentedLog) RemoveAfter(index int64) *Future[int] {
	return l.observeRemoved("remove_after", l.Log.RemoveAfter(index))
}

func (l *instrumentedLog) observeRemoved(op string, f *Future[int]) *Future[int] {
	f.OnComplete(func(n int, err error) {
		if !l.failed(op, err) {
			l.m.removed.Add(float64(n))
			l.syncLastIndex()
		}
	})
	return f
}

func (l *instrumentedLog) Free(id string) *Future[[]Relocation] {
	f := l.Log.Free(id)
	f.OnComplete(func(moves []Relocation, err error) {
		if l.failed("free", err) {
			return
		}
		l.m.frees.Inc()
		l.m.relocations.Add(float64(len(moves)))
		l.syncLastIndex()
	})
	return f
}

// FreeCommand goes through Free so it is counted.
func (l *instrumentedLog) FreeCommand(cmd *Command) *Future[[]Relocation] {
	return l.Free(cmd.ID)
}

func (l *instrumentedLog) SetFloor(index int64) *Future[[]Relocation] {
	f := l.Log.SetFloor(index)
	f.OnComplete(func(moves []Relocation, err error) {
		if l.failed("set_floor", err) {
			return
		}
		l.m.floor.Set(float64(index))
		l.m.relocations.Add(float64(len(moves)))
		l.syncLastIndex()
	})
	return f
}
