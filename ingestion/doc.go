// Package ingestion turns catalog entities into stored embeddings.
//
// A Manager owns the job lifecycle: CreateJob queues a job, ClaimNextJobs
// moves the highest priority, oldest jobs to processing, and ProcessBatch
// runs every entity through the chunker, the embedding generator and the
// embedding store. Per-entity failures are recorded in the job's progress;
// only store failures fail the job. RunScheduled combines these steps for an
// external trigger, and Scheduler provides one that never overlaps itself.
package ingestion
