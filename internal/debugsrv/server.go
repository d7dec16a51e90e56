// Package debugsrv implements the framework's introspection HTTP server:
// health, the scheduler's pending-job queue, job cancellation, the
// injector's instantiation order, and the hive's bound channel types —
// grounded on wilke-GoWe's internal/server (chi.Router, the same middleware
// stack, and the same request envelope), repurposed from a workflow-engine
// REST API into a read-mostly debug surface for one Injector/Scheduler/Hive
// composition root.
package debugsrv

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/me/mgfw/pkg/injector"
	"github.com/me/mgfw/pkg/logging"
	"github.com/me/mgfw/pkg/queue"
	"github.com/me/mgfw/pkg/scheduler"
)

// Server is the debug/introspection HTTP server for one composition root.
type Server struct {
	router    chi.Router
	sink      logging.Sink
	startTime time.Time
	inj       *injector.Injector
	sched     *scheduler.Scheduler
	hive      *queue.Hive
	httpSrv   *http.Server
}

// New creates a Server wired to inj, sched and hive, with all routes
// registered. Any of the three may be nil (e.g. in a test that only
// exercises /healthz).
func New(inj *injector.Injector, sched *scheduler.Scheduler, hive *queue.Hive, sink logging.Sink) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		sink:      sink,
		startTime: time.Now(),
		inj:       inj,
		sched:     sched,
		hive:      hive,
	}
	s.routes()
	return s
}

// Handler returns the server's http.Handler, for tests that want to drive
// it with httptest without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.sink))

	r.Get("/healthz", s.handleHealth)
	r.Get("/jobs", s.handleJobs)
	r.Post("/jobs/{id}/cancel", s.handleCancelJob)
	r.Get("/types", s.handleTypes)
	r.Get("/channels", s.handleChannels)
}

type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

type jobView struct {
	ID       scheduler.JobID `json:"id"`
	Deadline time.Time       `json:"deadline"`
	Interval string          `json:"interval,omitempty"`
	Desc     string          `json:"desc,omitempty"`
}

type jobsResponse struct {
	PendingJobIDs []scheduler.JobID `json:"pending_job_ids"`
	Jobs          []jobView         `json:"jobs"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	if s.sched == nil {
		respondOK(w, reqID, jobsResponse{})
		return
	}

	infos := s.sched.SnapshotInfo()
	resp := jobsResponse{
		PendingJobIDs: make([]scheduler.JobID, len(infos)),
		Jobs:          make([]jobView, len(infos)),
	}
	for i, info := range infos {
		resp.PendingJobIDs[i] = info.ID
		view := jobView{ID: info.ID, Deadline: info.Deadline, Desc: info.Desc}
		if info.Interval > 0 {
			view.Interval = info.Interval.String()
		}
		resp.Jobs[i] = view
	}
	respondOK(w, reqID, resp)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	if s.sched == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, "no scheduler attached")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, "invalid job id")
		return
	}

	if !s.sched.CancelJob(scheduler.JobID(id)) {
		respondError(w, reqID, http.StatusNotFound, "job not found or already run")
		return
	}
	respondOK(w, reqID, map[string]any{"cancelled": id})
}

type typesResponse struct {
	InstantiationOrder []string `json:"instantiation_order"`
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	if s.inj == nil {
		respondOK(w, reqID, typesResponse{})
		return
	}
	respondOK(w, reqID, typesResponse{InstantiationOrder: s.inj.InstantiationOrder()})
}

type channelsResponse struct {
	Channels map[uint64]string `json:"channels"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	if s.hive == nil {
		respondOK(w, reqID, channelsResponse{})
		return
	}
	respondOK(w, reqID, channelsResponse{Channels: s.hive.Channels()})
}

// Run starts serving on addr until ctx is cancelled, then shuts down
// gracefully with a bounded timeout, mirroring the teacher's
// StartScheduler/graceful-shutdown pattern in cmd/server/main.go.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
