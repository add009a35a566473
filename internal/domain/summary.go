package domain

import "time"

// JobSummary describes a finished job run. It is what completion
// notifications carry.
type JobSummary struct {
	JobID      string    `json:"job_id"`
	UserID     int64     `json:"user_id"`
	Organism   string    `json:"organism"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Hits       int       `json:"hits"`
	NoHits     int       `json:"no_hits"`
	Timeouts   int       `json:"timeouts"`
	Errors     int       `json:"errors"`
	NotFound   int       `json:"not_available"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Count tallies one result row into the summary by its outcome.
func (s *JobSummary) Count(r ResultRecord) {
	s.Total++
	switch r.TopHit {
	case OutcomeNoHit:
		s.NoHits++
	case OutcomeTimeout:
		s.Timeouts++
	case OutcomeError:
		s.Errors++
	case OutcomeNA:
		s.NotFound++
	default:
		s.Hits++
	}
}
