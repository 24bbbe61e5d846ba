package formatter

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"impact-agent/models"
)

func sampleCapture() models.CaptureMetadata {
	return models.CaptureMetadata{
		Timestamp:  time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC),
		Camera:     "Apple iPhone 14",
		Resolution: "4032x3024",
		Location:   &models.Coordinates{Lat: 39.7392, Lng: -104.9903},
	}
}

func sampleAnalysis() *models.VisionAnalysis {
	return &models.VisionAnalysis{
		Description:        "A cracked sidewalk near a bus stop",
		Objects:            []string{"sidewalk", "bus stop"},
		Categories:         []string{"Infrastructure"},
		Tags:               []string{"sidewalk", "damage"},
		Confidence:         92,
		ImpactScore:        85,
		ImpactCategory:     "Infrastructure",
		Urgency:            "high",
		EstimatedImpact:    "Pedestrians at risk of tripping",
		RecommendedActions: []string{"Repair sidewalk"},
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	geo := &models.GeoContext{
		Address: "123 Main St", City: "Denver", State: "Colorado", Country: "United States",
	}
	weather := &models.WeatherContext{MatchedTime: "2024-06-15T14:00", Temperature: -6.3, Conditions: "Mainly clear"}
	articles := []models.NewsArticle{{Title: "City budget approved", URL: "https://example.com"}}

	first := Format(sampleCapture(), "0xabc", sampleAnalysis(), geo, weather, articles)
	second := Format(sampleCapture(), "0xabc", sampleAnalysis(), geo, weather, articles)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("identical inputs produced different records:\n%s\n%s", a, b)
	}
}

func TestFormatFillsAllSections(t *testing.T) {
	geo := &models.GeoContext{City: "Denver", State: "Colorado", Country: "United States"}

	got := Format(sampleCapture(), "0xabc", sampleAnalysis(), geo, nil, nil)

	if got.Metadata.Timestamp != "2024-06-15T14:30:00Z" {
		t.Errorf("timestamp = %q", got.Metadata.Timestamp)
	}
	if got.Metadata.Hash != "0xabc" {
		t.Errorf("hash = %q", got.Metadata.Hash)
	}
	if got.Metadata.Location.City != "Denver" {
		t.Errorf("city = %q", got.Metadata.Location.City)
	}
	if got.Metadata.Location.Coordinates.Lat != 39.7392 {
		t.Errorf("lat = %v", got.Metadata.Location.Coordinates.Lat)
	}
	if got.Analysis.Description != "A cracked sidewalk near a bus stop" {
		t.Errorf("description = %q", got.Analysis.Description)
	}
	if got.ImpactAssessment.Score != 85 || got.ImpactAssessment.Urgency != "high" {
		t.Errorf("impact assessment = %+v", got.ImpactAssessment)
	}
	if got.Context.Weather != nil {
		t.Error("weather should stay nil when the provider returned nothing")
	}
}

func TestFormatToleratesAllProvidersMissing(t *testing.T) {
	capture := models.CaptureMetadata{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	got := Format(capture, "0xdef", nil, nil, nil, nil)

	if got.Metadata.Camera != "Unknown" || got.Metadata.Resolution != "Unknown" {
		t.Errorf("metadata defaults = %q / %q, want Unknown", got.Metadata.Camera, got.Metadata.Resolution)
	}
	if got.Analysis.Description != NotAvailable {
		t.Errorf("description = %q, want %q", got.Analysis.Description, NotAvailable)
	}
	if got.ImpactAssessment.Category != NotAvailable || got.ImpactAssessment.Urgency != NotAvailable {
		t.Errorf("impact assessment = %+v", got.ImpactAssessment)
	}
	for name, s := range map[string][]string{
		"objects":            got.Analysis.Objects,
		"categories":         got.Analysis.Categories,
		"tags":               got.Analysis.Tags,
		"recommendedActions": got.ImpactAssessment.RecommendedActions,
	} {
		if s == nil {
			t.Errorf("%s should be an empty slice, not nil", name)
		}
	}
}

func TestFormatPreservesSliceContents(t *testing.T) {
	analysis := sampleAnalysis()
	got := Format(sampleCapture(), "0x1", analysis, nil, nil, nil)

	if !reflect.DeepEqual(got.Analysis.Objects, analysis.Objects) {
		t.Errorf("objects = %v, want %v", got.Analysis.Objects, analysis.Objects)
	}
	if !reflect.DeepEqual(got.ImpactAssessment.RecommendedActions, analysis.RecommendedActions) {
		t.Errorf("actions = %v, want %v", got.ImpactAssessment.RecommendedActions, analysis.RecommendedActions)
	}
}
