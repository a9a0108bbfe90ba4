package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"care-assess/internal/assessment"
	"care-assess/internal/model"
)

const (
	SheetAssessment  = "Assessment"
	SheetActionItems = "Action Items"
)

// Workbook lays out the assessment sections in template order, followed by
// any other stored sections sorted by key, and the action items on a
// second sheet.
func Workbook(a *model.Assessment, sectionNames []string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetAssessment); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetActionItems); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetAssessment, "A1", &[]interface{}{"Client", clientName(a)}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetAssessment, "A2", &[]interface{}{"Title", a.Title}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetAssessment, "A4", &[]interface{}{"Section", "Content"}); err != nil {
		return nil, err
	}

	row := 5
	for _, s := range rows(a.Sections.Data(), sectionNames) {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetAssessment, cell, &[]interface{}{s.Name, s.Text}); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetColWidth(SheetAssessment, "B", "B", 100); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(SheetActionItems, "A1", &[]interface{}{"#", "Action item"}); err != nil {
		return nil, err
	}
	for i, item := range a.ActionItems.Data() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetActionItems, cell, &[]interface{}{i + 1, item}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(SheetActionItems, "B", "B", 100); err != nil {
		return nil, err
	}

	return f, nil
}

// WriteXLSX writes the workbook for a to w.
func WriteXLSX(w io.Writer, a *model.Assessment, sectionNames []string) error {
	f, err := Workbook(a, sectionNames)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

type sectionRow struct {
	Name string
	Text string
}

func rows(sections model.Sections, names []string) []sectionRow {
	var out []sectionRow
	seen := map[string]bool{}
	for _, s := range assessment.Sections(names) {
		seen[s.Key] = true
		out = append(out, sectionRow{Name: s.Name, Text: sections[s.Key]})
	}

	var extra []string
	for k := range sections {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, sectionRow{Name: k, Text: sections[k]})
	}
	return out
}

func clientName(a *model.Assessment) string {
	if a.Case == nil {
		return ""
	}
	return a.Case.ClientName
}
