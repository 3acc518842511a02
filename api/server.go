// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poiesic/citare"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/ingestion"
	"github.com/poiesic/citare/search"
	"github.com/poiesic/citare/storage"
)

// Service is the part of citare.Database the HTTP API drives.
type Service interface {
	SubmitEmbeddingJob(ctx context.Context, jobType core.JobType, entityIDs []string, priority core.Priority, cfg *core.JobConfig) (string, error)
	RunScheduledProcessing(ctx context.Context) (*ingestion.RunSummary, error)
	SearchTopK(ctx context.Context, queryText string, k int, threshold float32, filters core.Filters) (*citare.SearchResponse, error)
	Job(ctx context.Context, jobID string) (*core.EmbeddingJob, error)
	Jobs(ctx context.Context, status core.JobStatus) ([]*core.EmbeddingJob, error)
}

var _ Service = (*citare.Database)(nil)

// Server exposes a Service over HTTP.
type Server struct {
	svc       Service
	echo      *echo.Echo
	k         int
	threshold float32
	jobConfig core.JobConfig
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSearchDefaults sets k and threshold for requests that omit them.
func WithSearchDefaults(k int, threshold float32) Option {
	return func(s *Server) error {
		if k < 1 {
			return fmt.Errorf("default k must be positive, got %d", k)
		}
		s.k = k
		s.threshold = threshold
		return nil
	}
}

// WithJobDefaults sets the job config used for submissions that omit it.
func WithJobDefaults(cfg core.JobConfig) Option {
	return func(s *Server) error {
		s.jobConfig = cfg
		return nil
	}
}

// NewServer builds the router.
func NewServer(svc Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("api: service required")
	}

	s := &Server{
		svc:       svc,
		k:         citare.DefaultK,
		threshold: 0.75,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/health", s.health)
	e.POST("/jobs", s.submitJob)
	e.GET("/jobs", s.listJobs)
	e.POST("/jobs/run", s.runJobs)
	e.GET("/jobs/:id", s.getJob)
	e.POST("/search", s.search)

	s.echo = e
	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, citare.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidK),
		errors.Is(err, core.ErrInvalidJob),
		errors.Is(err, core.ErrInvalidJobType),
		errors.Is(err, core.ErrInvalidJobStatus),
		errors.Is(err, core.ErrInvalidPriority),
		errors.Is(err, core.ErrInvalidEntityType),
		errors.Is(err, core.ErrEmptyEntityIDs),
		errors.Is(err, core.ErrEmptyEntityID),
		errors.Is(err, storage.ErrInvalidQuery):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Error("could not write error response", "err", err)
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
