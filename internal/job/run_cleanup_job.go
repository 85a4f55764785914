package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/avelkin/linkvault/internal/repo"
	"github.com/avelkin/linkvault/internal/service"
)

// RunCleanupJob prunes finished import runs past their retention window,
// both from the journal and from the in-memory snapshot cache.
type RunCleanupJob struct {
	runs    *repo.RunRepo
	imports *service.ImportService
	maxAge  time.Duration
}

func NewRunCleanupJob(runs *repo.RunRepo, imports *service.ImportService, maxAge time.Duration) *RunCleanupJob {
	return &RunCleanupJob{runs: runs, imports: imports, maxAge: maxAge}
}

func (j *RunCleanupJob) Name() string {
	return "run_cleanup"
}

func (j *RunCleanupJob) Run(ctx context.Context) error {
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	if j.imports != nil {
		j.imports.Prune(maxAge)
	}
	if j.runs == nil {
		return nil
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed, err := j.runs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("pruned import runs", zap.Int64("count", removed))
	}
	return nil
}
