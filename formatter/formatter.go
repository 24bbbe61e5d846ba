package formatter

import (
	"time"

	"impact-agent/models"
)

// NotAvailable marks leaf values that no provider could fill.
const NotAvailable = "Not available"

// Format merges the extractor output with the (possibly nil) provider
// outputs into a canonical analysis record. Pure and deterministic:
// identical inputs produce an identical record. Tolerates every
// optional input being nil.
func Format(
	capture models.CaptureMetadata,
	hash string,
	analysis *models.VisionAnalysis,
	location *models.GeoContext,
	weather *models.WeatherContext,
	articles []models.NewsArticle,
) models.CanonicalAnalysisRecord {
	record := models.CanonicalAnalysisRecord{
		Metadata: models.RecordMetadata{
			Timestamp:  capture.Timestamp.UTC().Format(time.RFC3339),
			Camera:     orUnknown(capture.Camera),
			Resolution: orUnknown(capture.Resolution),
			Hash:       hash,
		},
		Context: models.RecordContext{
			Weather: weather,
			News:    articles,
		},
	}

	if capture.Location != nil {
		record.Metadata.Location.Coordinates = *capture.Location
	}
	if location != nil {
		record.Metadata.Location.Address = location.Address
		record.Metadata.Location.City = location.City
		record.Metadata.Location.State = location.State
		record.Metadata.Location.Country = location.Country
	}

	if analysis != nil {
		record.Analysis = models.RecordAnalysis{
			Description: analysis.Description,
			Objects:     orEmpty(analysis.Objects),
			Categories:  orEmpty(analysis.Categories),
			Tags:        orEmpty(analysis.Tags),
			Confidence:  analysis.Confidence,
		}
		record.ImpactAssessment = models.ImpactAssessment{
			Score:              analysis.ImpactScore,
			Category:           orNotAvailable(analysis.ImpactCategory),
			Urgency:            orNotAvailable(analysis.Urgency),
			EstimatedImpact:    orNotAvailable(analysis.EstimatedImpact),
			RecommendedActions: orEmpty(analysis.RecommendedActions),
		}
	} else {
		record.Analysis = models.RecordAnalysis{
			Description: NotAvailable,
			Objects:     []string{},
			Categories:  []string{},
			Tags:        []string{},
		}
		record.ImpactAssessment = models.ImpactAssessment{
			Category:           NotAvailable,
			Urgency:            NotAvailable,
			EstimatedImpact:    NotAvailable,
			RecommendedActions: []string{},
		}
	}

	return record
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
