// Package server exposes a lisp heap over Connect. All heap access is
// serialized through a HeapWorker goroutine that owns the context.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/lispcore/config"
	"github.com/chazu/lispcore/gcstats"
	"github.com/chazu/lispcore/lisp"
)

var log = commonlog.GetLogger("lispcore.server")

// Server is the inspection server wrapping a heap worker.
type Server struct {
	worker    *HeapWorker
	handles   *HandleStore
	collector *Collector
	journal   *gcstats.Store
	mux       *http.ServeMux

	stopSweeper func()
}

// New creates a Server from cfg. When cfg names a stats database, every
// collection is journaled there.
func New(cfg *config.Config) (*Server, error) {
	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	opts := []lisp.Option{lisp.WithConfig(cfg.HeapConfig())}
	var journal *gcstats.Store
	if p := cfg.DatabasePath(); p != "" {
		journal, err = gcstats.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening stats journal: %w", err)
		}
		opts = append(opts, lisp.WithStatsSink(journal))
	}

	worker, err := NewHeapWorker(opts...)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, err
	}
	handles, err := NewHandleStore(worker)
	if err != nil {
		worker.Stop()
		if journal != nil {
			journal.Close()
		}
		return nil, err
	}

	s := &Server{
		worker:    worker,
		handles:   handles,
		collector: NewCollector(worker, interval),
		journal:   journal,
		mux:       http.NewServeMux(),
	}

	inspectPath, inspectHandler := NewInspectService(worker, handles, s.collector).Handler()
	s.mux.Handle(inspectPath, inspectHandler)

	if interval > 0 {
		s.collector.Start()
	}
	// Sweep every 5 minutes, 30-minute TTL
	s.stopSweeper = handles.StartSweeper(5*time.Minute, 30*time.Minute)

	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Worker returns the heap worker.
func (s *Server) Worker() *HeapWorker {
	return s.worker
}

// ListenAndServe starts the HTTP server on addr ("host:port" or ":port").
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("listening on %s", addr)
	fmt.Printf("lispcore inspection server listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP): http://%s%s\n", addr, StatsProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.collector.Stop()
	s.worker.Stop()
	if s.journal != nil {
		s.journal.Close()
	}
}
