package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wereliang/raftlog/log"
	"github.com/wereliang/raftlog/pkg/xlog"
)

const contentTypeJSON = "application/json"

// State summarises the log bounds for operators and followers.
type State struct {
	FirstIndex int64 `json:"first_index"`
	FirstTerm  int64 `json:"first_term"`
	LastIndex  int64 `json:"last_index"`
	LastTerm   int64 `json:"last_term"`
	Floor      int64 `json:"floor"`
}

type AppendRequest struct {
	Term    int64        `json:"term"`
	Type    string       `json:"type"`
	Command *log.Command `json:"command,omitempty"`
	Members []string     `json:"members,omitempty"`
}

type FloorRequest struct {
	Floor int64 `json:"floor"`
}

// Service exposes a Log over HTTP.
type Service struct {
	log      log.Log
	gatherer prometheus.Gatherer
	addr     string
	server   *http.Server
	listener net.Listener
}

// NewService serves l on addr. A nil gatherer disables /metrics.
func NewService(l log.Log, addr string, gatherer prometheus.Gatherer) *Service {
	return &Service{log: l, addr: addr, gatherer: gatherer}
}

func (svc *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", svc.handleHealth)
	r.Get("/state", svc.handleState)

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", svc.handleRange)
		r.Post("/", svc.handleAppend)
		r.Get("/{index}", svc.handleGet)
		r.Delete("/{index}", svc.handleRemove)
		r.Post("/truncate/before/{index}", svc.handleRemoveBefore)
		r.Post("/truncate/after/{index}", svc.handleRemoveAfter)
	})

	r.Get("/commands/{id}", svc.handleCommandIndex)
	r.Post("/commands/{id}/free", svc.handleFree)

	r.Get("/floor", svc.handleGetFloor)
	r.Put("/floor", svc.handleSetFloor)

	if svc.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start listens synchronously and serves in the background.
func (svc *Service) Start() error {
	ln, err := net.Listen("tcp", svc.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", svc.addr)
	}
	svc.listener = ln
	svc.server = &http.Server{
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := svc.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			xlog.Error("serve %s: %v", svc.addr, err)
		}
	}()
	xlog.Info("log service listening on %s", ln.Addr())
	return nil
}

// Addr is the bound address once started.
func (svc *Service) Addr() string {
	if svc.listener != nil {
		return svc.listener.Addr().String()
	}
	return svc.addr
}

func (svc *Service) Stop(ctx context.Context) error {
	if svc.server == nil {
		return nil
	}
	return svc.server.Shutdown(ctx)
}

func (svc *Service) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		xlog.Warn("write response: %v", err)
	}
}

func (svc *Service) writeValue(w http.ResponseWriter, value interface{}) {
	svc.writeJSON(w, http.StatusOK, newValueResponse(value))
}

func (svc *Service) handleError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		xlog.Error("log operation failed: %v", err)
	}
	svc.writeJSON(w, status, newErrorResponse(err))
}

func (svc *Service) notFound(w http.ResponseWriter, format string, v ...interface{}) {
	svc.writeJSON(w, http.StatusNotFound, newErrorResponse(errors.Errorf(format, v...)))
}

func indexParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid index %q", raw)
	}
	return index, nil
}

func queryIndex(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func (svc *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	svc.writeJSON(w, http.StatusOK, Response{Status: StatusOK})
}

func (svc *Service) state(ctx context.Context) (*State, error) {
	var (
		st  State
		err error
	)
	if st.FirstIndex, err = svc.log.FirstIndex().Wait(ctx); err != nil {
		return nil, err
	}
	if st.FirstTerm, err = svc.log.FirstTerm().Wait(ctx); err != nil {
		return nil, err
	}
	if st.LastIndex, err = svc.log.LastIndex().Wait(ctx); err != nil {
		return nil, err
	}
	if st.LastTerm, err = svc.log.LastTerm().Wait(ctx); err != nil {
		return nil, err
	}
	if st.Floor, err = svc.log.Floor().Wait(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func (svc *Service) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := svc.state(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, st)
}

func (svc *Service) handleRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	first, err := svc.log.FirstIndex().Wait(ctx)
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	last, err := svc.log.LastIndex().Wait(ctx)
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	start, err := queryIndex(r, "start", first)
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	end, err := queryIndex(r, "end", last+1)
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := svc.log.Range(start, end).Wait(ctx)
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, entries)
}

func (svc *Service) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svc.handleError(w, http.StatusBadRequest, errors.Wrap(err, "decode append request"))
		return
	}
	entry, err := req.entry()
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	index, err := svc.log.Append(entry).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	entry.Index = index
	svc.writeValue(w, entry)
}

func (req *AppendRequest) entry() (log.Entry, error) {
	typ, err := log.ParseEntryType(req.Type)
	if err != nil {
		return log.Entry{}, err
	}
	switch typ {
	case log.CommandEntry:
		if req.Command == nil {
			return log.Entry{}, errors.New("command entry without command")
		}
		cmd := req.Command
		if cmd.ID == "" {
			cmd = log.NewCommand(cmd.Name, cmd.Args)
		}
		return log.NewCommandEntry(req.Term, cmd), nil
	case log.ConfigurationEntry:
		return log.NewConfigurationEntry(req.Term, req.Members), nil
	}
	return log.NewNoOpEntry(req.Term), nil
}

func (svc *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := svc.log.Get(index).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		svc.notFound(w, "no entry at index %d", index)
		return
	}
	svc.writeValue(w, entry)
}

func (svc *Service) handleRemove(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := svc.log.RemoveEntry(index).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		svc.notFound(w, "no entry at index %d", index)
		return
	}
	svc.writeValue(w, entry)
}

func (svc *Service) handleRemoveBefore(w http.ResponseWriter, r *http.Request) {
	svc.truncate(w, r, svc.log.RemoveBefore)
}

func (svc *Service) handleRemoveAfter(w http.ResponseWriter, r *http.Request) {
	svc.truncate(w, r, svc.log.RemoveAfter)
}

func (svc *Service) truncate(w http.ResponseWriter, r *http.Request, remove func(int64) *log.Future[int]) {
	index, err := indexParam(r)
	if err != nil {
		svc.handleError(w, http.StatusBadRequest, err)
		return
	}
	n, err := remove(index).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, map[string]int{"removed": n})
}

func (svc *Service) handleCommandIndex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := svc.log.CommandIndex(id).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	if index < 0 {
		svc.notFound(w, "command %s not in log", id)
		return
	}
	svc.writeValue(w, map[string]int64{"index": index})
}

func (svc *Service) handleFree(w http.ResponseWriter, r *http.Request) {
	moves, err := svc.log.Free(chi.URLParam(r, "id")).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, relocations(moves))
}

func (svc *Service) handleGetFloor(w http.ResponseWriter, r *http.Request) {
	floor, err := svc.log.Floor().Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, FloorRequest{Floor: floor})
}

func (svc *Service) handleSetFloor(w http.ResponseWriter, r *http.Request) {
	var req FloorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svc.handleError(w, http.StatusBadRequest, errors.Wrap(err, "decode floor request"))
		return
	}
	moves, err := svc.log.SetFloor(req.Floor).Wait(r.Context())
	if err != nil {
		svc.handleError(w, http.StatusInternalServerError, err)
		return
	}
	svc.writeValue(w, relocations(moves))
}

func relocations(moves []log.Relocation) map[string][]log.Relocation {
	if moves == nil {
		moves = []log.Relocation{}
	}
	return map[string][]log.Relocation{"relocations": moves}
}
