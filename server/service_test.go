package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wereliang/raftlog/log"
)

type testResponse struct {
	Status Status          `json:"status"`
	Value  json.RawMessage `json:"value"`
	Error  string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (int, testResponse) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), contentTypeJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func appendCommand(t *testing.T, h http.Handler, id string) int64 {
	t.Helper()
	code, resp := do(t, h, http.MethodPost, "/entries", AppendRequest{
		Term:    1,
		Type:    "command",
		Command: &log.Command{ID: id, Name: "set", Args: []byte(id)},
	})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var e log.Entry
	decode(t, resp.Value, &e)
	return e.Index
}

func TestServiceAppendAndQuery(t *testing.T) {
	h := NewService(log.NewMemLog(), "", nil).Handler()

	code, resp := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusOK, resp.Status)

	assert.EqualValues(t, 0, appendCommand(t, h, "a"))
	assert.EqualValues(t, 1, appendCommand(t, h, "b"))
	code, resp = do(t, h, http.MethodPost, "/entries", AppendRequest{Term: 2, Type: "noop"})
	require.Equal(t, http.StatusOK, code)

	code, resp = do(t, h, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, code)
	var st State
	decode(t, resp.Value, &st)
	assert.Equal(t, State{FirstIndex: 0, FirstTerm: 1, LastIndex: 2, LastTerm: 2, Floor: 0}, st)

	code, resp = do(t, h, http.MethodGet, "/entries/1", nil)
	require.Equal(t, http.StatusOK, code)
	var e log.Entry
	decode(t, resp.Value, &e)
	assert.Equal(t, "b", e.Command.ID)
	assert.Equal(t, log.CommandEntry, e.Type)

	code, _ = do(t, h, http.MethodGet, "/entries/9", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/entries/x", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, h, http.MethodGet, "/entries?start=1", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []log.Entry
	decode(t, resp.Value, &entries)
	assert.Len(t, entries, 2)

	code, resp = do(t, h, http.MethodGet, "/commands/a", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"index":0}`, string(resp.Value))
	code, _ = do(t, h, http.MethodGet, "/commands/zz", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServiceAppendValidation(t *testing.T) {
	h := NewService(log.NewMemLog(), "", nil).Handler()

	code, _ := do(t, h, http.MethodPost, "/entries", AppendRequest{Term: 1, Type: "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, h, http.MethodPost, "/entries", AppendRequest{Term: 1, Type: "command"})
	assert.Equal(t, http.StatusBadRequest, code)

	// commands without id get one assigned
	code, resp := do(t, h, http.MethodPost, "/entries", AppendRequest{
		Term: 1, Type: "command", Command: &log.Command{Name: "set"},
	})
	require.Equal(t, http.StatusOK, code)
	var e log.Entry
	decode(t, resp.Value, &e)
	assert.NotEmpty(t, e.Command.ID)
}

func TestServiceFreeAndFloor(t *testing.T) {
	h := NewService(log.NewMemLog(), "", nil).Handler()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		appendCommand(t, h, id)
	}

	code, resp := do(t, h, http.MethodPost, "/commands/c/free", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"relocations":[]}`, string(resp.Value))

	code, resp = do(t, h, http.MethodPut, "/floor", FloorRequest{Floor: 3})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"relocations":[{"from":1,"to":2},{"from":0,"to":1}]}`, string(resp.Value))

	code, resp = do(t, h, http.MethodGet, "/floor", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"floor":3}`, string(resp.Value))

	// lowering the floor is a fault
	code, resp = do(t, h, http.MethodPut, "/floor", FloorRequest{Floor: 1})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "invariant")
}

func TestServiceRemove(t *testing.T) {
	h := NewService(log.NewMemLog(), "", nil).Handler()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		appendCommand(t, h, id)
	}

	code, _ := do(t, h, http.MethodDelete, "/entries/4", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodDelete, "/entries/4", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := do(t, h, http.MethodPost, "/entries/truncate/before/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":2}`, string(resp.Value))

	code, resp = do(t, h, http.MethodPost, "/entries/truncate/after/3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":1}`, string(resp.Value))

	code, resp = do(t, h, http.MethodGet, "/entries", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []log.Entry
	decode(t, resp.Value, &entries)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].Index)
}

func TestServiceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	l, err := log.NewInstrumentedLog(log.NewMemLog(), reg)
	require.NoError(t, err)
	h := NewService(l, "", reg).Handler()
	appendCommand(t, h, "a")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "raftlog_appends_total 1")
}
