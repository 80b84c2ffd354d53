package jobs

import "context"

// Store persists job states for queue restart recovery.
type Store interface {
	LoadJobs(ctx context.Context) ([]*SolveJob, error)
	UpsertJob(ctx context.Context, job *SolveJob) error
	DeleteJob(ctx context.Context, jobID string) error
	// DeleteJobData removes all auxiliary data (downloaded files, workspaces) for a job.
	DeleteJobData(ctx context.Context, jobID string) error
}
