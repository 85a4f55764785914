package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/avelkin/linkvault/internal/pkg/errors"

	"github.com/avelkin/linkvault/internal/archive"
	"github.com/avelkin/linkvault/internal/importer"
	"github.com/avelkin/linkvault/internal/model"
	"github.com/avelkin/linkvault/internal/pocketbase"
	"github.com/avelkin/linkvault/internal/repo"
	"github.com/avelkin/linkvault/internal/staging"
)

// journalEvery throttles journal writes for progress events; terminal events
// are always persisted.
const journalEvery = 10

type StartInput struct {
	Data          []byte
	PocketBaseURL string
	UserToken     string
	TargetUserID  string
	Archives      archive.Source
}

// ImportService owns the lifecycle of import runs. Live runs are tracked in
// memory and mirrored to the journal; finished runs stay in a bounded cache
// so status polls right after completion do not need a database round trip.
type ImportService struct {
	runs    *repo.RunRepo
	staging staging.Store

	newStore func(baseURL string, token string) importer.Store

	mu       sync.Mutex
	active   map[string]*model.ImportRun
	finished *lru.Cache[string, *model.ImportRun]
}

func NewImportService(runs *repo.RunRepo, stagingStore staging.Store, keepFinished int) (*ImportService, error) {
	if keepFinished <= 0 {
		keepFinished = 128
	}
	finished, err := lru.New[string, *model.ImportRun](keepFinished)
	if err != nil {
		return nil, err
	}
	return &ImportService{
		runs:    runs,
		staging: stagingStore,
		newStore: func(baseURL string, token string) importer.Store {
			return pocketbase.New(baseURL, token, nil)
		},
		active:   make(map[string]*model.ImportRun),
		finished: finished,
	}, nil
}

func (s *ImportService) Start(ctx context.Context, userID string, input StartInput) (*model.ImportRun, error) {
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: export payload is empty", appErr.ErrInvalid)
	}
	if input.TargetUserID == "" {
		return nil, fmt.Errorf("%w: target user id is required", appErr.ErrInvalid)
	}
	if input.UserToken == "" {
		return nil, fmt.Errorf("%w: destination token is required", appErr.ErrInvalid)
	}
	parsed, err := url.Parse(input.PocketBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: destination url is invalid", appErr.ErrInvalid)
	}

	now := time.Now().UnixMilli()
	run := &model.ImportRun{
		ID:           newRunID(),
		UserID:       userID,
		TargetUserID: input.TargetUserID,
		Status:       model.RunStatusRunning,
		Progress:     make(map[string]float64),
		Ctime:        now,
		Mtime:        now,
	}
	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			return nil, err
		}
	}
	if s.staging != nil {
		if err := s.staging.Save(ctx, run.ID+".json", input.Data); err != nil {
			logutil.GetLogger(ctx).Warn("stage export payload failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}

	pipeline := importer.New(importer.Options{
		Data:     input.Data,
		Store:    s.newStore(input.PocketBaseURL, input.UserToken),
		UserID:   input.TargetUserID,
		Archives: input.Archives,
	})
	// Snapshot before the consumer goroutine exists: once consume runs,
	// the registered run is only safe to touch under the mutex.
	snapshot := run.Clone()
	s.mu.Lock()
	s.active[run.ID] = run
	s.mu.Unlock()

	// The run outlives the request that started it.
	pipeline.Start(context.Background())
	go s.consume(run.ID, pipeline)
	return snapshot, nil
}

func (s *ImportService) consume(runID string, pipeline *importer.Pipeline) {
	ctx := context.Background()
	seen := 0
	for event := range pipeline.Events() {
		seen += 1
		snapshot := s.apply(runID, event)
		if snapshot == nil {
			continue
		}
		terminal := event.Type != importer.EventProgress
		if s.runs == nil || (!terminal && seen%journalEvery != 0) {
			continue
		}
		if err := s.runs.Update(ctx, snapshot); err != nil {
			logutil.GetLogger(ctx).Error("journal run update failed",
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
		if terminal && snapshot.Report != nil && len(snapshot.Report.Failures) > 0 {
			if err := s.runs.InsertFailures(ctx, runID, snapshot.Report.Failures); err != nil {
				logutil.GetLogger(ctx).Error("journal run failures failed",
					zap.String("run_id", runID),
					zap.Error(err),
				)
			}
		}
	}

	s.mu.Lock()
	run, ok := s.active[runID]
	delete(s.active, runID)
	s.mu.Unlock()
	if ok {
		s.finished.Add(runID, run)
	}
}

func (s *ImportService) apply(runID string, event importer.Event) *model.ImportRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.active[runID]
	if !ok {
		return nil
	}
	switch event.Type {
	case importer.EventProgress:
		run.Progress[event.Category] = event.Progress
	case importer.EventError:
		run.Status = model.RunStatusErrored
		run.Error = event.Error
	case importer.EventComplete:
		run.Status = model.RunStatusComplete
		run.Report = event.Report
	}
	run.Mtime = time.Now().UnixMilli()
	return run.Clone()
}

func (s *ImportService) Status(ctx context.Context, userID string, runID string) (*model.ImportRun, error) {
	s.mu.Lock()
	run, ok := s.active[runID]
	var snapshot *model.ImportRun
	if ok {
		snapshot = run.Clone()
	}
	s.mu.Unlock()

	if snapshot == nil {
		if cached, ok := s.finished.Get(runID); ok {
			snapshot = cached.Clone()
		}
	}
	if snapshot == nil && s.runs != nil {
		stored, err := s.runs.Get(ctx, userID, runID)
		if err != nil {
			return nil, err
		}
		snapshot = stored
	}
	if snapshot == nil {
		return nil, appErr.ErrNotFound
	}
	if snapshot.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return snapshot, nil
}

func (s *ImportService) List(ctx context.Context, userID string, limit uint, offset uint) ([]*model.ImportRun, error) {
	if s.runs == nil {
		return s.listMemory(userID), nil
	}
	runs, err := s.runs.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	// The journal lags live runs by up to journalEvery events; overlay the
	// in-memory snapshots.
	s.mu.Lock()
	for i, run := range runs {
		if live, ok := s.active[run.ID]; ok {
			runs[i] = live.Clone()
		}
	}
	s.mu.Unlock()
	return runs, nil
}

func (s *ImportService) listMemory(userID string) []*model.ImportRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var runs []*model.ImportRun
	for _, run := range s.active {
		if run.UserID == userID {
			runs = append(runs, run.Clone())
		}
	}
	for _, key := range s.finished.Keys() {
		if run, ok := s.finished.Peek(key); ok && run.UserID == userID {
			runs = append(runs, run.Clone())
		}
	}
	return runs
}

// Prune evicts finished runs older than maxAge from the in-memory cache.
// Journal rows are pruned separately by the cleanup job.
func (s *ImportService) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0
	for _, key := range s.finished.Keys() {
		run, ok := s.finished.Peek(key)
		if ok && run.Mtime < cutoff {
			s.finished.Remove(key)
			removed += 1
		}
	}
	return removed
}
