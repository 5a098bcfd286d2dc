package handler

import (
	"net/http"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/scrape"
)

// ScrapeHandler extracts role and company details from a posting URL so
// the frontend can prefill a new record.
type ScrapeHandler struct {
	scraper *scrape.Scraper
}

func NewScrapeHandler(scraper *scrape.Scraper) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper}
}

// HandleScrape fetches and parses the posting page.
//
// HTTP: POST /api/scrape (authenticated)
func (h *ScrapeHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		writeError(w, apperror.ValidationFailed("url", "url is required"))
		return
	}

	posting, err := h.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posting)
}
