package history

import "time"

// Status of one job outcome.
const (
	StatusExported = "exported"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// Run is one export invocation, including its retries.
type Run struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	Format    string    `json:"format"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Total     int       `json:"total"`
	Exported  int       `json:"exported"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Attempts  int       `json:"attempts"`
	Cancelled bool      `json:"cancelled"`
}

// Outcome is what happened to one job. Layer is -1 for whole-artboard jobs.
type Outcome struct {
	RunID    string `json:"run_id"`
	Seq      int    `json:"seq"`
	Artboard int    `json:"artboard"`
	Layer    int    `json:"layer"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	Path     string `json:"path,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Ledger defines the run history operations.
// Consumers should depend on this interface rather than the concrete *DB.
type Ledger interface {
	RecordRun(r Run, outcomes []Outcome) error
	GetRun(id string) (*Run, error)
	ListRuns(limit, offset int) ([]Run, int, error)
	Outcomes(runID string) ([]Outcome, error)
	Search(query string, limit int) ([]Outcome, error)
	ExportedFiles() ([]Outcome, error)
	Close() error
}

var _ Ledger = (*DB)(nil)
