package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/poiesic/citare/core"
)

func (s *Server) submitJob(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid json")
	}
	if req.JobType == "" {
		req.JobType = string(core.JobTypeGenerateNew)
	}
	if err := core.ValidateJobType(core.JobType(req.JobType)); err != nil {
		return err
	}
	if len(req.EntityIDs) == 0 {
		return core.ErrEmptyEntityIDs
	}
	priority := core.Priority(req.Priority)
	if priority != "" {
		if err := core.ValidatePriority(priority); err != nil {
			return err
		}
	}

	cfg := s.jobConfig
	if req.BatchSize != nil {
		if *req.BatchSize < 1 {
			return badRequest("batch_size must be positive")
		}
		cfg.BatchSize = *req.BatchSize
	}
	if req.RetryCount != nil {
		if *req.RetryCount < 0 {
			return badRequest("retry_count must not be negative")
		}
		cfg.RetryCount = *req.RetryCount
	}

	id, err := s.svc.SubmitEmbeddingJob(c.Request().Context(), core.JobType(req.JobType), req.EntityIDs, priority, &cfg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, submitResponse{JobID: id})
}

func (s *Server) getJob(c echo.Context) error {
	job, err := s.svc.Job(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newJobResponse(job))
}

func (s *Server) listJobs(c echo.Context) error {
	jobs, err := s.svc.Jobs(c.Request().Context(), core.JobStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, newJobResponse(job))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) runJobs(c echo.Context) error {
	summary, err := s.svc.RunScheduledProcessing(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRunResponse(summary))
}

func (s *Server) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid json")
	}
	if strings.TrimSpace(req.Query) == "" {
		return badRequest("query is required")
	}
	if req.K < 0 {
		return badRequest("k must not be negative")
	}
	filters := req.Filters.toFilters()
	if filters.EntityType != "" {
		if err := core.ValidateEntityType(filters.EntityType); err != nil {
			return err
		}
	}

	k := req.K
	if k == 0 {
		k = s.k
	}
	threshold := s.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	resp, err := s.svc.SearchTopK(c.Request().Context(), req.Query, k, threshold, filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSearchResponse(resp))
}
