// Package validation checks converted series before they are written out.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
)

// Series codes come out of Slugify, so anything else indicates a conversion
// bug upstream.
var seriesCodeRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)

// QualityReport summarizes the issues found in one conversion run.
type QualityReport struct {
	Datasets int
	Series   int

	EmptyDatasets        []string
	DuplicateSeriesCodes map[string][]string // dataset code -> duplicated codes
	InvalidSeries        []string            // "<dataset>/<code>: reason"
	NAOnlySeries         []string            // "<dataset>/<code>"
}

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// ValidateSeries checks one series in isolation.
func (v *DataValidator) ValidateSeries(s *entities.Series) error {
	if s == nil {
		return fmt.Errorf("series is nil")
	}
	if s.Code == "" {
		return fmt.Errorf("empty series code")
	}
	if !seriesCodeRe.MatchString(s.Code) {
		return fmt.Errorf("series code %q is not slug-safe", s.Code)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("series %s has no name", s.Code)
	}
	if len(s.Observations) == 0 {
		return fmt.Errorf("series %s has no observations", s.Code)
	}
	for _, o := range s.Observations {
		if o.Period == "" {
			return fmt.Errorf("series %s has an observation without a period", s.Code)
		}
	}
	return nil
}

// ReportQuality inspects every converted dataset and returns the issues
// found. It never fails the run; the converter logs the report.
func (v *DataValidator) ReportQuality(datasets map[string][]entities.Series) *QualityReport {
	report := &QualityReport{
		Datasets:             len(datasets),
		DuplicateSeriesCodes: make(map[string][]string),
	}

	codes := make([]string, 0, len(datasets))
	for code := range datasets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, datasetCode := range codes {
		series := datasets[datasetCode]
		report.Series += len(series)

		if len(series) == 0 {
			report.EmptyDatasets = append(report.EmptyDatasets, datasetCode)
			continue
		}

		seen := make(map[string]int)
		for i := range series {
			s := &series[i]
			seen[s.Code]++

			if err := v.ValidateSeries(s); err != nil {
				report.InvalidSeries = append(report.InvalidSeries,
					fmt.Sprintf("%s/%s: %v", datasetCode, s.Code, err))
				continue
			}
			if naOnly(s) {
				report.NAOnlySeries = append(report.NAOnlySeries, datasetCode+"/"+s.Code)
			}
		}

		var duplicated []string
		for code, count := range seen {
			if count > 1 {
				duplicated = append(duplicated, code)
			}
		}
		if len(duplicated) > 0 {
			sort.Strings(duplicated)
			report.DuplicateSeriesCodes[datasetCode] = duplicated
		}
	}

	return report
}

func naOnly(s *entities.Series) bool {
	for _, o := range s.Observations {
		if o.Value != "NA" {
			return false
		}
	}
	return true
}
