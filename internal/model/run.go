package model

type RunStatus = string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusErrored  RunStatus = "errored"
)

type CategoryStats struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type RecordFailure struct {
	Category string `json:"category"`
	SourcePK int64  `json:"source_pk"`
	Reason   string `json:"reason"`
}

type RunReport struct {
	Categories map[string]*CategoryStats `json:"categories"`
	Failures   []RecordFailure           `json:"failures"`
}

func NewRunReport() *RunReport {
	return &RunReport{Categories: map[string]*CategoryStats{}}
}

func (r *RunReport) Stats(category string) *CategoryStats {
	stats, ok := r.Categories[category]
	if !ok {
		stats = &CategoryStats{}
		r.Categories[category] = stats
	}
	return stats
}

func (r *RunReport) AddFailure(category string, pk int64, reason string) {
	r.Stats(category).Failed += 1
	r.Failures = append(r.Failures, RecordFailure{
		Category: category,
		SourcePK: pk,
		Reason:   reason,
	})
}

// ImportRun is the host-side view of one pipeline run. UserID is the host
// account that started the run; TargetUserID is the destination-store user
// stamped onto every created record.
type ImportRun struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	TargetUserID string             `json:"target_user_id"`
	Status       RunStatus          `json:"status"`
	Progress     map[string]float64 `json:"progress"`
	Report       *RunReport         `json:"report,omitempty"`
	Error        string             `json:"error,omitempty"`
	Ctime        int64              `json:"ctime"`
	Mtime        int64              `json:"mtime"`
}

func (r *ImportRun) Clone() *ImportRun {
	clone := *r
	clone.Progress = make(map[string]float64, len(r.Progress))
	for category, percent := range r.Progress {
		clone.Progress[category] = percent
	}
	if r.Report != nil {
		report := NewRunReport()
		for category, stats := range r.Report.Categories {
			copied := *stats
			report.Categories[category] = &copied
		}
		report.Failures = append(report.Failures, r.Report.Failures...)
		clone.Report = report
	}
	return &clone
}
