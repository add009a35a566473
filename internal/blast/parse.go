package blast

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

const notAvailable = "NA"

var speciesPattern = regexp.MustCompile(`\[([^\]]+)\]`)

type TopHit struct {
	Accession string
	Species   string
	BitScore  string
	EValue    string
}

// xmlHit keeps the raw inner XML so the first Hsp can be found at any depth.
type xmlHit struct {
	Accession *string `xml:"Hit_accession"`
	Def       string  `xml:"Hit_def"`
	Inner     []byte  `xml:",innerxml"`
}

type xmlHsp struct {
	BitScore *string `xml:"Hsp_bit-score"`
	EValue   *string `xml:"Hsp_evalue"`
}

// ParseTopHit extracts the first hit of a BLAST XML report. A report
// without hits yields NA in every field; a malformed document is a
// *ParseError.
func ParseTopHit(payload string) (TopHit, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))

	var (
		hit     *xmlHit
		sawRoot bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return TopHit{}, &ParseError{Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if hit != nil || start.Name.Local != "Hit" {
			continue
		}

		var h xmlHit
		if err := dec.DecodeElement(&h, &start); err != nil {
			return TopHit{}, &ParseError{Err: err}
		}
		hit = &h
	}
	if !sawRoot {
		return TopHit{}, &ParseError{Err: errors.New("document has no root element")}
	}

	if hit == nil {
		return TopHit{Accession: notAvailable, Species: notAvailable, BitScore: notAvailable, EValue: notAvailable}, nil
	}

	out := TopHit{
		Accession: textOr(hit.Accession, notAvailable),
		Species:   ExtractSpecies(hit.Def),
		BitScore:  notAvailable,
		EValue:    notAvailable,
	}
	hsp, err := firstHsp(hit.Inner)
	if err != nil {
		return TopHit{}, &ParseError{Err: err}
	}
	if hsp != nil {
		out.BitScore = textOr(hsp.BitScore, notAvailable)
		out.EValue = textOr(hsp.EValue, notAvailable)
	}
	return out, nil
}

// firstHsp decodes the first Hsp element below a hit, however deeply it
// is nested. It returns nil when the hit has none.
func firstHsp(inner []byte) (*xmlHsp, error) {
	dec := xml.NewDecoder(bytes.NewReader(inner))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Hsp" {
			continue
		}
		var hsp xmlHsp
		if err := dec.DecodeElement(&hsp, &start); err != nil {
			return nil, err
		}
		return &hsp, nil
	}
}

// ExtractSpecies returns the first bracketed substring of a hit
// description, or "NA".
func ExtractSpecies(description string) string {
	match := speciesPattern.FindStringSubmatch(description)
	if match == nil {
		return notAvailable
	}
	return match[1]
}

func textOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
