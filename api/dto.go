package api

import (
	"time"

	"github.com/poiesic/citare"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/hydrate"
	"github.com/poiesic/citare/ingestion"
)

type submitRequest struct {
	JobType    string   `json:"job_type"`
	EntityIDs  []string `json:"entity_ids"`
	Priority   string   `json:"priority"`
	BatchSize  *int     `json:"batch_size"`
	RetryCount *int     `json:"retry_count"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type filtersRequest struct {
	EntityType   string `json:"entity_type"`
	Jurisdiction string `json:"jurisdiction"`
	TopicKey     string `json:"topic_key"`
}

type searchRequest struct {
	Query     string         `json:"query"`
	K         int            `json:"k"`
	Threshold *float32       `json:"threshold"`
	Filters   filtersRequest `json:"filters"`
}

type sourceResponse struct {
	EntityID      string  `json:"entity_id"`
	EntityType    string  `json:"entity_type"`
	Similarity    float32 `json:"similarity"`
	Snippet       string  `json:"snippet"`
	Jurisdiction  string  `json:"jurisdiction"`
	TopicKey      string  `json:"topic_key"`
	TopicLabel    string  `json:"topic_label"`
	SourceURL     string  `json:"source_url"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

type searchResponse struct {
	Sources       []sourceResponse `json:"sources"`
	Degraded      bool             `json:"degraded"`
	Candidates    int              `json:"candidates"`
	QueryFallback bool             `json:"query_fallback,omitempty"`
}

type progressResponse struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type jobResponse struct {
	JobID       string           `json:"job_id"`
	JobType     string           `json:"job_type"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	EntityIDs   []string         `json:"entity_ids"`
	Progress    progressResponse `json:"progress"`
	BatchSize   int              `json:"batch_size"`
	RetryCount  int              `json:"retry_count"`
	Attempts    int              `json:"attempts"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type runResponse struct {
	Claimed   int      `json:"claimed"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Retrying  int      `json:"retrying"`
	JobIDs    []string `json:"job_ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (f filtersRequest) toFilters() core.Filters {
	return core.Filters{
		EntityType:   core.EntityType(f.EntityType),
		Jurisdiction: f.Jurisdiction,
		TopicKey:     f.TopicKey,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newJobResponse(job *core.EmbeddingJob) jobResponse {
	return jobResponse{
		JobID:     job.JobID,
		JobType:   string(job.JobType),
		Status:    string(job.Status),
		Priority:  string(job.Config.Priority),
		EntityIDs: job.EntityIDs,
		Progress: progressResponse{
			Total:     job.Progress.Total,
			Completed: job.Progress.Completed,
			Failed:    job.Progress.Failed,
			Errors:    job.Progress.Errors,
		},
		BatchSize:   job.Config.BatchSize,
		RetryCount:  job.Config.RetryCount,
		Attempts:    job.Attempts,
		ScheduledAt: job.ScheduledAt,
		StartedAt:   timePtr(job.StartedAt),
		CompletedAt: timePtr(job.CompletedAt),
	}
}

func newSearchResponse(resp *citare.SearchResponse) searchResponse {
	out := searchResponse{
		Sources:       make([]sourceResponse, 0, len(resp.Sources)),
		Degraded:      resp.Degraded,
		Candidates:    resp.Candidates,
		QueryFallback: resp.QueryFallback,
	}
	for _, src := range resp.Sources {
		out.Sources = append(out.Sources, newSourceResponse(src))
	}
	return out
}

func newSourceResponse(src hydrate.Source) sourceResponse {
	return sourceResponse{
		EntityID:      src.EntityID,
		EntityType:    string(src.EntityType),
		Similarity:    src.Similarity,
		Snippet:       src.Snippet,
		Jurisdiction:  src.Jurisdiction,
		TopicKey:      src.TopicKey,
		TopicLabel:    src.TopicLabel,
		SourceURL:     src.SourceURL,
		LowConfidence: src.LowConfidence,
	}
}

func newRunResponse(summary *ingestion.RunSummary) runResponse {
	ids := summary.JobIDs
	if ids == nil {
		ids = []string{}
	}
	return runResponse{
		Claimed:   summary.Claimed,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Retrying:  summary.Retrying,
		JobIDs:    ids,
	}
}
