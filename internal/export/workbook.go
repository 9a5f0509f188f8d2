package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ourfish-bknd/internal/aggregate"
)

const (
	FileName      = "fisheries-data.xlsx"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MetadataSheet = "metadata"
)

// Metadata describes the filter the tables were computed under, in the
// form a reader of the workbook needs: names rather than ids.
type Metadata struct {
	Countries []string
	SNUs      []string
	LGUs      []string
	MAAs      []string
	Start     time.Time
	End       time.Time
}

func (m Metadata) rows() [][]any {
	return [][]any{
		{"FILTER", "VALUE"},
		{"country", strings.Join(m.Countries, ", ")},
		{"snu", strings.Join(m.SNUs, ", ")},
		{"lgu", strings.Join(m.LGUs, ", ")},
		{"maa", strings.Join(m.MAAs, ", ")},
		{"start date", m.Start.Format(aggregate.DateLayout)},
		{"end date", m.End.Format(aggregate.DateLayout)},
	}
}

// Workbook renders every table on its own sheet followed by the metadata
// sheet. Missing values are left blank.
func Workbook(tables []aggregate.Table, meta Metadata) (*excelize.File, error) {
	f := excelize.NewFile()

	first := true
	for _, t := range tables {
		if first {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", t.Name, err)
		}

		header := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			header[i] = c
		}
		if err := writeRows(f, t.Name, append([][]any{header}, t.Rows...)); err != nil {
			return nil, err
		}
	}

	if first {
		if err := f.SetSheetName("Sheet1", MetadataSheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(MetadataSheet); err != nil {
		return nil, fmt.Errorf("new sheet %s: %w", MetadataSheet, err)
	}
	if err := writeRows(f, MetadataSheet, meta.rows()); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write renders the workbook to w.
func Write(w io.Writer, tables []aggregate.Table, meta Metadata) error {
	f, err := Workbook(tables, meta)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
