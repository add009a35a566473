package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
)

// Request is everything a runner needs to execute one job. It is the
// payload handed from the dispatcher to the runner, in-process or through
// the queue.
type Request struct {
	JobID          string   `json:"job_id"`
	UserID         int64    `json:"user_id"`
	Organism       string   `json:"organism"`
	Accessions     []string `json:"accessions"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job_id is required")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// Budget is the per-accession poll budget. Zero means unbounded.
func (r Request) Budget() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r Request) TaxID() string {
	return domain.TaxIDFor(r.Organism)
}

// Progress is the integer percentage after done of total accessions,
// rounded down.
func Progress(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}
