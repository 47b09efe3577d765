// Package handlers implements the HTTP endpoints of serve mode.
package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/interfaces"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/go-chi/chi/v5"
)

const seriesPageSize = 50

// Codes in URLs come from our own converter output, anything else is noise.
var codeRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)

// Handler serves converted PAJ data out of the injected store.
type Handler struct {
	store interfaces.DataStore
}

func New(store interfaces.DataStore) *Handler {
	return &Handler{store: store}
}

// Provider returns provider.json.
func (h *Handler) Provider(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, r, http.StatusOK, h.store.GetProvider())
}

// Datasets returns every dataset summary.
func (h *Handler) Datasets(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, r, http.StatusOK, h.store.GetDatasets())
}

// Dataset returns one dataset.json by code.
func (h *Handler) Dataset(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !codeRe.MatchString(code) {
		logging.Warn("Unusual dataset code in request", "code", code)
		respondWithError(w, r, http.StatusBadRequest, "Invalid dataset code")
		return
	}

	dataset, found := h.store.GetDataset(code)
	if !found {
		respondWithError(w, r, http.StatusNotFound, "Dataset not found")
		return
	}
	respondWithJSON(w, r, http.StatusOK, dataset)
}

// DatasetSeries returns one page of the series of a dataset.
func (h *Handler) DatasetSeries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !codeRe.MatchString(code) {
		respondWithError(w, r, http.StatusBadRequest, "Invalid dataset code")
		return
	}

	series, found := h.store.GetSeries(code)
	if !found {
		respondWithError(w, r, http.StatusNotFound, "Dataset not found")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, r, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = n
	}

	start := (page - 1) * seriesPageSize
	if start >= len(series) && len(series) > 0 {
		respondWithError(w, r, http.StatusNotFound, "Page not found")
		return
	}
	end := start + seriesPageSize
	if end > len(series) {
		end = len(series)
	}
	paged := series[start:end]
	if paged == nil {
		paged = []entities.Series{}
	}

	respondWithJSON(w, r, http.StatusOK, map[string]any{
		"dataset":    code,
		"data":       paged,
		"page":       page,
		"pageSize":   seriesPageSize,
		"totalItems": len(series),
		"maxPage":    (len(series) + seriesPageSize - 1) / seriesPageSize,
	})
}

// SingleSeries returns one series of a dataset by code.
func (h *Handler) SingleSeries(w http.ResponseWriter, r *http.Request) {
	datasetCode := chi.URLParam(r, "code")
	seriesCode := chi.URLParam(r, "seriesCode")
	if !codeRe.MatchString(datasetCode) || !codeRe.MatchString(seriesCode) {
		respondWithError(w, r, http.StatusBadRequest, "Invalid code")
		return
	}

	series, found := h.store.GetSeries(datasetCode)
	if !found {
		respondWithError(w, r, http.StatusNotFound, "Dataset not found")
		return
	}
	for i := range series {
		if series[i].Code == seriesCode {
			respondWithJSON(w, r, http.StatusOK, series[i])
			return
		}
	}
	respondWithError(w, r, http.StatusNotFound, "Series not found")
}

// Health reports data freshness and store state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	lastUpdated := h.store.GetLastUpdated()

	status := "healthy"
	if lastUpdated.IsZero() {
		status = "empty"
	}

	respondWithJSON(w, r, http.StatusOK, map[string]any{
		"status":         status,
		"dataset_count":  len(h.store.GetDatasets()),
		"last_updated":   lastUpdated.Format(time.RFC3339),
		"data_age_hours": time.Since(lastUpdated).Hours(),
		"updating":       h.store.IsUpdating(),
	})
}
