package tagline

import (
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"impact-agent/models"
)

// FallbackTagline is substituted whenever generation fails. The
// enhancement step must never fail the pipeline.
const FallbackTagline = "Community infrastructure issue requires assessment"

// Generator derives a one-line summary from a canonical record. The
// rule-based implementation below is swappable for a generative model
// without changing this contract.
type Generator interface {
	Generate(record *models.CanonicalAnalysisRecord) (*models.AIEnhancement, error)
	Model() string
	Provider() string
}

// Enhance attaches an AIEnhancement block to the record. On generator
// error the fixed fallback string is used and the error is logged,
// never returned.
func Enhance(gen Generator, record *models.CanonicalAnalysisRecord) {
	enhancement, err := gen.Generate(record)
	if err != nil {
		log.Errorf("Tagline generation failed, using fallback: %v", err)
		enhancement = &models.AIEnhancement{
			Tagline:     FallbackTagline,
			Model:       gen.Model(),
			Provider:    gen.Provider(),
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		}
	}
	record.AIEnhancement = enhancement
}

// RuleBased matches description keywords against a small set of issue
// types and composes a tagline with an urgency prefix and a location
// suffix.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (g *RuleBased) Model() string    { return "rule-based-v1" }
func (g *RuleBased) Provider() string { return "impact-agent" }

func (g *RuleBased) Generate(record *models.CanonicalAnalysisRecord) (*models.AIEnhancement, error) {
	desc := strings.ToLower(record.Analysis.Description)

	issueType := "infrastructure issue"
	switch {
	case strings.Contains(desc, "pothole"), strings.Contains(desc, "crack"):
		issueType = "road damage"
	case strings.Contains(desc, "sidewalk"), strings.Contains(desc, "pavement"):
		issueType = "sidewalk damage"
	case strings.Contains(desc, "drain"), strings.Contains(desc, "grate"):
		issueType = "drainage issue"
	case strings.Contains(desc, "light"), strings.Contains(desc, "lamp"):
		issueType = "lighting issue"
	}

	prefix := ""
	switch strings.ToLower(record.ImpactAssessment.Urgency) {
	case "high":
		prefix = "Urgent: "
	case "critical":
		prefix = "Critical: "
	}

	locationPart := ""
	loc := locationString(record)
	if loc != "" {
		locationPart = "in " + loc + " "
	}

	text := strings.TrimSpace(fmt.Sprintf("%s%s %srequires community action", prefix, issueType, locationPart))

	return &models.AIEnhancement{
		Tagline:     text,
		Model:       g.Model(),
		Provider:    g.Provider(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func locationString(record *models.CanonicalAnalysisRecord) string {
	parts := []string{}
	for _, p := range []string{
		record.Metadata.Location.City,
		record.Metadata.Location.State,
		record.Metadata.Location.Country,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
