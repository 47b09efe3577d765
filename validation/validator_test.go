package validation

import (
	"strings"
	"testing"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
)

func obs(pairs ...string) []entities.Observation {
	observations := make([]entities.Observation, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		observations = append(observations, entities.Observation{Period: pairs[i], Value: pairs[i+1]})
	}
	return observations
}

func TestValidateSeries(t *testing.T) {
	v := NewDataValidator()

	tests := []struct {
		name     string
		series   *entities.Series
		expected string // empty means valid
	}{
		{"valid", &entities.Series{Code: "gasoline-kl", Name: "Gasoline (kl)", Observations: obs("2025-01", "100")}, ""},
		{"valid with sheet prefix", &entities.Series{Code: "demand.gasoline", Name: "Gasoline", Observations: obs("2025-01", "100")}, ""},
		{"nil", nil, "series is nil"},
		{"empty code", &entities.Series{Name: "x", Observations: obs("2025-01", "1")}, "empty series code"},
		{"bad code", &entities.Series{Code: "Gasoline KL", Name: "x", Observations: obs("2025-01", "1")}, "not slug-safe"},
		{"no name", &entities.Series{Code: "a", Name: "  ", Observations: obs("2025-01", "1")}, "has no name"},
		{"no observations", &entities.Series{Code: "a", Name: "x"}, "no observations"},
		{"missing period", &entities.Series{Code: "a", Name: "x", Observations: obs("", "1")}, "without a period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSeries(tt.series)
			if tt.expected == "" {
				if err != nil {
					t.Errorf("Expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Expected error containing %q, got %v", tt.expected, err)
			}
		})
	}
}

func TestReportQuality(t *testing.T) {
	v := NewDataValidator()

	datasets := map[string][]entities.Series{
		"paj-01": {
			{Code: "gasoline", Name: "Gasoline", Observations: obs("2025-01", "100")},
			{Code: "gasoline", Name: "Gasoline again", Observations: obs("2025-01", "200")},
			{Code: "kerosene", Name: "Kerosene", Observations: obs("2025-01", "NA", "2025-02", "NA")},
		},
		"paj-02": {},
		"paj-03": {
			{Code: "", Name: "Broken", Observations: obs("2025-01", "1")},
		},
	}

	report := v.ReportQuality(datasets)

	if report.Datasets != 3 {
		t.Errorf("Expected 3 datasets, got %d", report.Datasets)
	}
	if report.Series != 4 {
		t.Errorf("Expected 4 series, got %d", report.Series)
	}
	if len(report.EmptyDatasets) != 1 || report.EmptyDatasets[0] != "paj-02" {
		t.Errorf("Expected paj-02 flagged empty, got %v", report.EmptyDatasets)
	}
	if codes := report.DuplicateSeriesCodes["paj-01"]; len(codes) != 1 || codes[0] != "gasoline" {
		t.Errorf("Expected gasoline flagged duplicate, got %v", codes)
	}
	if len(report.NAOnlySeries) != 1 || report.NAOnlySeries[0] != "paj-01/kerosene" {
		t.Errorf("Expected paj-01/kerosene flagged NA-only, got %v", report.NAOnlySeries)
	}
	if len(report.InvalidSeries) != 1 || !strings.Contains(report.InvalidSeries[0], "paj-03") {
		t.Errorf("Expected one invalid series in paj-03, got %v", report.InvalidSeries)
	}
}

func TestReportQualityClean(t *testing.T) {
	v := NewDataValidator()
	report := v.ReportQuality(map[string][]entities.Series{
		"paj-01": {{Code: "gasoline", Name: "Gasoline", Observations: obs("2025-01", "100")}},
	})

	if len(report.EmptyDatasets) != 0 || len(report.DuplicateSeriesCodes) != 0 ||
		len(report.InvalidSeries) != 0 || len(report.NAOnlySeries) != 0 {
		t.Errorf("Expected a clean report, got %+v", report)
	}
}
