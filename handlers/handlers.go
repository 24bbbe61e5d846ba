package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"impact-agent/config"
	"impact-agent/ledger"
	"impact-agent/models"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	cfg    *config.Config
	ledger ledger.Ledger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(cfg *config.Config, l ledger.Ledger) *Handlers {
	return &Handlers{cfg: cfg, ledger: l}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "impact-agent",
	})
}

// GetStatus returns ledger totals for the active submission profile.
func (h *Handlers) GetStatus(c *gin.Context) {
	entries, err := h.ledger.Entries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get pipeline status",
		})
		return
	}

	succeeded, failures := 0, 0
	for _, e := range entries {
		if e.Status == models.StatusSuccess {
			succeeded++
		} else {
			failures++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"service":            "impact-agent",
		"submission_profile": h.cfg.SubmissionProfile,
		"processed_total":    len(entries),
		"succeeded":          succeeded,
		"failed":             failures,
	})
}

// GetAnalyses returns the processed-file ledger entries.
func (h *Handlers) GetAnalyses(c *gin.Context) {
	entries, err := h.ledger.Entries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list processed files",
		})
		return
	}
	if entries == nil {
		entries = []models.ProcessedFileEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"analyses": entries,
		"count":    len(entries),
	})
}
