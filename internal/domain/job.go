package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	JobStatusRunning = "RUNNING"
	JobStatusDone    = "DONE"

	DefaultOrganism       = "zebrafish"
	DefaultTimeoutSeconds = 900
)

// Sentinels written into result fields in place of real values.
const (
	OutcomeNoHit   = "No hit"
	OutcomeTimeout = "TIMEOUT"
	OutcomeError   = "ERROR"
	OutcomeNA      = "NA"
)

var organismTaxIDs = map[string]string{
	"human":     "9606",
	"zebrafish": "7955",
}

type StartJobRequest struct {
	UserID         int64    `json:"-"`
	Accessions     []string `json:"accessions,omitempty"`
	AccessionsText string   `json:"accessions_text,omitempty"`
	Organism       string   `json:"organism,omitempty"`
	TimeoutSeconds *int     `json:"timeout_seconds,omitempty"`
}

type Job struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Organism  string    `json:"organism"`
	Progress  int       `json:"progress"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type JobStatus struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

type ResultRecord struct {
	ID        int64  `json:"id"`
	JobID     string `json:"job_id"`
	Accession string `json:"accession"`
	TopHit    string `json:"top_hit"`
	Gene      string `json:"gene"`
	Species   string `json:"species"`
	BitScore  string `json:"bit_score"`
	EValue    string `json:"evalue"`
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// AllAccessions merges the list and free-text forms of the request.
func (r StartJobRequest) AllAccessions() []string {
	out := make([]string, 0, len(r.Accessions))
	for _, acc := range r.Accessions {
		if acc = strings.TrimSpace(acc); acc != "" {
			out = append(out, acc)
		}
	}
	return append(out, ParseAccessions(r.AccessionsText)...)
}

func (r StartJobRequest) Timeout() int {
	if r.TimeoutSeconds == nil {
		return DefaultTimeoutSeconds
	}
	return *r.TimeoutSeconds
}

func (r StartJobRequest) Validate() error {
	if len(r.AllAccessions()) == 0 {
		return errors.New("no accession numbers provided")
	}
	if r.Timeout() < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// ParseAccessions splits newline separated input, dropping blank lines.
func ParseAccessions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if acc := strings.TrimSpace(line); acc != "" {
			out = append(out, acc)
		}
	}
	return out
}

func NormalizeOrganism(organism string) string {
	organism = strings.ToLower(strings.TrimSpace(organism))
	if organism == "" {
		return DefaultOrganism
	}
	return organism
}

// TaxIDFor maps an organism choice to its NCBI taxonomy id. Unknown
// choices fall back to zebrafish.
func TaxIDFor(organism string) string {
	if taxID, ok := organismTaxIDs[NormalizeOrganism(organism)]; ok {
		return taxID
	}
	return organismTaxIDs[DefaultOrganism]
}

func Organisms() []string {
	return []string{"human", "zebrafish"}
}
