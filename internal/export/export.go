package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Results"

var Header = []string{"accession", "top_hit", "gene", "species", "bit_score", "evalue"}

func row(r domain.ResultRecord) []string {
	return []string{
		orNA(r.Accession),
		orNA(r.TopHit),
		orNA(r.Gene),
		orNA(r.Species),
		orNA(r.BitScore),
		orNA(r.EValue),
	}
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return domain.OutcomeNA
	}
	return v
}

// WriteCSV writes the header and one line per result.
func WriteCSV(w io.Writer, results []domain.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Accession, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, results []domain.ResultRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, r := range results {
		if err := setRow(f, i+2, row(r)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
