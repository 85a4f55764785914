package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"

	appErr "github.com/avelkin/linkvault/internal/pkg/errors"

	"github.com/avelkin/linkvault/internal/model"
	"github.com/avelkin/linkvault/internal/pkg/dbutil"
)

const (
	runTable     = "import_runs"
	failureTable = "import_failures"
)

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

type runRow struct {
	ID           string
	UserID       string
	TargetUserID string
	Status       string
	ProgressJSON string
	ReportJSON   string
	Error        string
	Ctime        int64
	Mtime        int64
}

func encodeRun(run *model.ImportRun) (*runRow, error) {
	progress, err := json.Marshal(run.Progress)
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	report := []byte("{}")
	if run.Report != nil {
		report, err = json.Marshal(run.Report)
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
	}
	return &runRow{
		ID:           run.ID,
		UserID:       run.UserID,
		TargetUserID: run.TargetUserID,
		Status:       string(run.Status),
		ProgressJSON: string(progress),
		ReportJSON:   string(report),
		Error:        run.Error,
		Ctime:        run.Ctime,
		Mtime:        run.Mtime,
	}, nil
}

func decodeRun(row *runRow) (*model.ImportRun, error) {
	run := &model.ImportRun{
		ID:           row.ID,
		UserID:       row.UserID,
		TargetUserID: row.TargetUserID,
		Status:       model.RunStatus(row.Status),
		Progress:     make(map[string]float64),
		Error:        row.Error,
		Ctime:        row.Ctime,
		Mtime:        row.Mtime,
	}
	if row.ProgressJSON != "" {
		if err := json.Unmarshal([]byte(row.ProgressJSON), &run.Progress); err != nil {
			return nil, fmt.Errorf("unmarshal progress: %w", err)
		}
	}
	if row.ReportJSON != "" && row.ReportJSON != "{}" {
		var report model.RunReport
		if err := json.Unmarshal([]byte(row.ReportJSON), &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		run.Report = &report
	}
	return run, nil
}

func (r *RunRepo) Create(ctx context.Context, run *model.ImportRun) error {
	row, err := encodeRun(run)
	if err != nil {
		return err
	}
	data := []map[string]interface{}{
		{
			"id":             row.ID,
			"user_id":        row.UserID,
			"target_user_id": row.TargetUserID,
			"status":         row.Status,
			"progress_json":  row.ProgressJSON,
			"report_json":    row.ReportJSON,
			"error":          row.Error,
			"ctime":          row.Ctime,
			"mtime":          row.Mtime,
		},
	}
	query, args, err := builder.BuildInsert(runTable, data)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, dbutil.Finalize(query), args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *RunRepo) Update(ctx context.Context, run *model.ImportRun) error {
	row, err := encodeRun(run)
	if err != nil {
		return err
	}
	where := map[string]interface{}{
		"id": row.ID,
	}
	update := map[string]interface{}{
		"status":        row.Status,
		"progress_json": row.ProgressJSON,
		"report_json":   row.ReportJSON,
		"error":         row.Error,
		"mtime":         row.Mtime,
	}
	query, args, err := builder.BuildUpdate(runTable, where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, dbutil.Finalize(query), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, userID string, runID string) (*model.ImportRun, error) {
	where := map[string]interface{}{
		"id":      runID,
		"user_id": userID,
	}
	fields := []string{"id", "user_id", "target_user_id", "status", "progress_json", "report_json", "error", "ctime", "mtime"}
	query, args, err := builder.BuildSelect(runTable, where, fields)
	if err != nil {
		return nil, err
	}
	var row runRow
	err = r.db.QueryRowContext(ctx, dbutil.Finalize(query), args...).Scan(
		&row.ID, &row.UserID, &row.TargetUserID, &row.Status,
		&row.ProgressJSON, &row.ReportJSON, &row.Error, &row.Ctime, &row.Mtime,
	)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRun(&row)
}

func (r *RunRepo) List(ctx context.Context, userID string, limit uint, offset uint) ([]*model.ImportRun, error) {
	if limit == 0 {
		limit = 20
	}
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc",
		"_limit":   []uint{offset, limit},
	}
	fields := []string{"id", "user_id", "target_user_id", "status", "progress_json", "report_json", "error", "ctime", "mtime"}
	query, args, err := builder.BuildSelect(runTable, where, fields)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Finalize(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.ImportRun
	for rows.Next() {
		var row runRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.TargetUserID, &row.Status,
			&row.ProgressJSON, &row.ReportJSON, &row.Error, &row.Ctime, &row.Mtime,
		); err != nil {
			return nil, err
		}
		run, err := decodeRun(&row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepo) InsertFailures(ctx context.Context, runID string, failures []model.RecordFailure) error {
	if len(failures) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	data := make([]map[string]interface{}, 0, len(failures))
	for _, failure := range failures {
		data = append(data, map[string]interface{}{
			"run_id":    runID,
			"category":  failure.Category,
			"source_pk": failure.SourcePK,
			"reason":    failure.Reason,
			"ctime":     now,
		})
	}
	query, args, err := builder.BuildInsert(failureTable, data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Finalize(query), args...)
	return err
}

func (r *RunRepo) ListFailures(ctx context.Context, runID string, categories []string) ([]model.RecordFailure, error) {
	query := "SELECT category, source_pk, reason FROM " + failureTable + " WHERE run_id = ?"
	args := []interface{}{runID}
	if len(categories) > 0 {
		query += " AND category IN (?)"
		args = append(args, categories)
	}
	query += " ORDER BY id"
	query, expanded, err := dbutil.In(query, args...)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, expanded...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []model.RecordFailure
	for rows.Next() {
		var failure model.RecordFailure
		if err := rows.Scan(&failure.Category, &failure.SourcePK, &failure.Reason); err != nil {
			return nil, err
		}
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}

// DeleteBefore removes runs last touched before cutoff, together with their
// recorded failures. Returns the number of runs removed.
func (r *RunRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	query := "DELETE FROM " + failureTable + " WHERE run_id IN (SELECT id FROM " + runTable + " WHERE mtime < ?)"
	if _, err := r.db.ExecContext(ctx, dbutil.Finalize(query), cutoff); err != nil {
		return 0, err
	}
	result, err := r.db.ExecContext(ctx, dbutil.Finalize("DELETE FROM "+runTable+" WHERE mtime < ?"), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
