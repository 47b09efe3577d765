package converter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/xuri/excelize/v2"
)

// PAJ workbooks are period-by-series tables: the first non-empty row names
// the series (first cell is the period column), every following row is one
// period with its observation values.

// sheetTable is the raw grid of one sheet, already trimmed to the header and
// its data rows.
type sheetTable struct {
	sheet    string
	position int
	header   []string
	rows     [][]string
}

// readWorkbook extracts a table from every non-empty sheet of the workbook.
func readWorkbook(path string) ([]sheetTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "path", path, "error", err)
		}
	}()

	var tables []sheetTable
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, path, err)
		}

		table, ok := tableFromRows(sheet, rows)
		if !ok {
			logging.Debug("Sheet has no tabular data, skipping", "workbook", path, "sheet", sheet)
			continue
		}
		table.position = i + 1
		tables = append(tables, table)
	}
	return tables, nil
}

// tableFromRows finds the header row (first row with at least two non-empty
// cells) and collects the data rows below it.
func tableFromRows(sheet string, rows [][]string) (sheetTable, bool) {
	headerIdx := -1
	for i, row := range rows {
		if nonEmptyCells(row) >= 2 {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 || headerIdx == len(rows)-1 {
		return sheetTable{}, false
	}

	header := trimRow(rows[headerIdx])
	var data [][]string
	for _, row := range rows[headerIdx+1:] {
		row = trimRow(row)
		// Rows without a period label are decoration (titles, footnotes).
		if len(row) == 0 || row[0] == "" {
			continue
		}
		data = append(data, row)
	}
	if len(data) == 0 {
		return sheetTable{}, false
	}
	return sheetTable{sheet: sheet, header: header, rows: data}, true
}

// seriesFromTable builds one series per header column after the period
// column.
func seriesFromTable(table sheetTable, qualify bool) []entities.Series {
	series := make([]entities.Series, 0, len(table.header)-1)

	for col := 1; col < len(table.header); col++ {
		name := strings.TrimSpace(table.header[col])
		if name == "" {
			continue
		}

		code := Slugify(name)
		if code == "" {
			// Headers with no foldable ASCII at all (pure Japanese text)
			// fall back to the column position.
			code = fmt.Sprintf("col-%d", col)
		}
		if qualify {
			// Several sheets in one workbook: qualify by sheet to keep
			// codes distinct across sheets. Sheet names with no foldable
			// ASCII get the same positional fallback as headers.
			prefix := Slugify(table.sheet)
			if prefix == "" {
				prefix = fmt.Sprintf("sheet-%d", table.position)
			}
			code = prefix + "." + code
		}

		observations := make([]entities.Observation, 0, len(table.rows))
		for _, row := range table.rows {
			value := "NA"
			if col < len(row) {
				value = normalizeValue(row[col])
			}
			observations = append(observations, entities.Observation{
				Period: strings.TrimSpace(row[0]),
				Value:  value,
			})
		}

		series = append(series, entities.Series{
			Code:         code,
			Name:         name,
			Observations: observations,
		})
	}
	return series
}

// normalizeValue returns the numeric text of a cell, or "NA". The workbooks
// use commas as thousands separators and leave missing values blank or
// marked with dashes.
func normalizeValue(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "-" || cell == "ー" {
		return "NA"
	}

	cleaned := strings.ReplaceAll(cell, ",", "")
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "NA"
	}
	return cleaned
}

func nonEmptyCells(row []string) int {
	count := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			count++
		}
	}
	return count
}

// trimRow drops trailing empty cells and trims the rest.
func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	trimmed := make([]string, end)
	for i := 0; i < end; i++ {
		trimmed[i] = strings.TrimSpace(row[i])
	}
	return trimmed
}
