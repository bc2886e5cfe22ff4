// Package httpapi serves the monitor state over HTTP: Prometheus metrics and
// JSON snapshots of the tasks and runners.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Swind/go-rt-monitor/core"
)

const maxBodyBytes = 1 << 20

// Store is the part of *core.MetricsStore the API reads and writes.
type Store interface {
	Snapshot() []core.TaskSnapshot
	TaskSnapshot(name string) (core.TaskSnapshot, bool)
	SetSensor(name string, active bool) error
}

// Options configures a Server. Store is required.
type Options struct {
	Store Store

	// Runners lists the runners reported by /api/runners.
	Runners func() []core.Runner

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prom.Gatherer

	// RunID is echoed in every JSON response.
	RunID string

	Logger core.Logger
}

// Server routes the HTTP surface.
type Server struct {
	opts   Options
	router *httprouter.Router
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("httpapi: nil store")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prom.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = core.NewNoOpLogger()
	}

	s := &Server{opts: opts, router: httprouter.New()}
	s.router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	s.router.GET("/api/tasks", s.listTasks)
	s.router.GET("/api/tasks/:name", s.getTask)
	s.router.PUT("/api/tasks/:name/sensor", s.setSensor)
	s.router.GET("/api/runners", s.listRunners)
	s.router.PanicHandler = s.handlePanic
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.opts.Logger.Info("http api listening", core.F("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	snaps := s.opts.Store.Snapshot()
	views := make([]TaskView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, NewTaskView(snap))
	}
	s.writeJSON(w, http.StatusOK, envelope{RunID: s.opts.RunID, Data: views})
}

func (s *Server) getTask(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	snap, ok := s.opts.Store.TaskSnapshot(p.ByName("name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, core.ErrUnknownTask)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{RunID: s.opts.RunID, Data: NewTaskView(snap)})
}

type sensorRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) setSensor(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("name")

	var req sensorRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Active == nil {
		s.writeError(w, http.StatusUnprocessableEntity, errors.New(`body must be {"active": true|false}`))
		return
	}

	if err := s.opts.Store.SetSensor(name, *req.Active); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrUnknownTask) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.opts.Logger.Info("sensor set", core.F("task", name), core.F("active", *req.Active), core.F("source", "http"))

	snap, _ := s.opts.Store.TaskSnapshot(name)
	s.writeJSON(w, http.StatusOK, envelope{RunID: s.opts.RunID, Data: NewTaskView(snap)})
}

func (s *Server) listRunners(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	var views []RunnerView
	if s.opts.Runners != nil {
		for _, r := range s.opts.Runners() {
			views = append(views, NewRunnerView(r.Stats()))
		}
	}
	if views == nil {
		views = []RunnerView{}
	}
	s.writeJSON(w, http.StatusOK, envelope{RunID: s.opts.RunID, Data: views})
}

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request, rec any) {
	s.opts.Logger.Error("http handler panic", core.F("path", r.URL.Path), core.F("panic", rec))
	s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

type envelope struct {
	RunID string `json:"run_id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.opts.Logger.Warn("write response failed", core.F("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, envelope{RunID: s.opts.RunID, Error: err.Error()})
}
