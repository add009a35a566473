package pipeline

import (
	"github.com/dunamismax/blastflow/internal/blast"
	"github.com/dunamismax/blastflow/internal/domain"
)

func hitRecord(base domain.ResultRecord, hit blast.TopHit, gene string) domain.ResultRecord {
	base.TopHit = hit.Accession
	base.Gene = gene
	base.Species = hit.Species
	base.BitScore = hit.BitScore
	base.EValue = hit.EValue
	return base
}

func noHitRecord(base domain.ResultRecord) domain.ResultRecord {
	return fill(base, domain.OutcomeNoHit)
}

func timeoutRecord(base domain.ResultRecord) domain.ResultRecord {
	base.TopHit = domain.OutcomeTimeout
	base.Gene = domain.OutcomeTimeout
	base.Species = "BLAST search timed out"
	base.BitScore = domain.OutcomeNA
	base.EValue = domain.OutcomeNA
	return base
}

func notAvailableRecord(base domain.ResultRecord) domain.ResultRecord {
	return fill(base, domain.OutcomeNA)
}

// errorRecord carries the failure text in the species column.
func errorRecord(base domain.ResultRecord, err error) domain.ResultRecord {
	base.TopHit = domain.OutcomeError
	base.Gene = domain.OutcomeError
	base.Species = err.Error()
	base.BitScore = domain.OutcomeNA
	base.EValue = domain.OutcomeNA
	return base
}

func fill(base domain.ResultRecord, v string) domain.ResultRecord {
	base.TopHit = v
	base.Gene = v
	base.Species = v
	base.BitScore = v
	base.EValue = v
	return base
}

// outcomeLabel is the metrics label for a finished record.
func outcomeLabel(r domain.ResultRecord) string {
	switch r.TopHit {
	case domain.OutcomeNoHit:
		return "no_hits"
	case domain.OutcomeTimeout:
		return "timeout"
	case domain.OutcomeError:
		return "error"
	case domain.OutcomeNA:
		return "not_available"
	default:
		return "hit"
	}
}
