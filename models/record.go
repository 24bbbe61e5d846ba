package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Coordinates is a GPS position in floating point degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CaptureMetadata is what the extractor recovers from the media file
// itself. Camera and Resolution default to "Unknown" when the tags are
// absent; Location is nil when no GPS data exists.
type CaptureMetadata struct {
	Timestamp  time.Time    `json:"timestamp"`
	Camera     string       `json:"camera"`
	Resolution string       `json:"resolution"`
	Location   *Coordinates `json:"location,omitempty"`
}

// GeoContext is the reverse-geocoded address for a coordinate pair.
type GeoContext struct {
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Country     string      `json:"country"`
	Coordinates Coordinates `json:"coordinates"`
}

// LocationString renders "City, State, Country" skipping empty parts.
func (g *GeoContext) LocationString() string {
	if g == nil {
		return ""
	}
	parts := []string{}
	for _, p := range []string{g.City, g.State, g.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// WeatherContext is the archive weather nearest to the capture hour.
type WeatherContext struct {
	MatchedTime   string  `json:"matched_time"`
	Temperature   float64 `json:"temperature_2m"`
	Precipitation float64 `json:"precipitation"`
	WeatherCode   int     `json:"weather_code"`
	WindSpeed     float64 `json:"wind_speed_10m"`
	Conditions    string  `json:"conditions"`
}

// NewsArticle is a single article returned by the news index.
type NewsArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Seen    string `json:"seendate,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Country string `json:"sourcecountry,omitempty"`
}

// VisionAnalysis is the structured result of the vision LLM call.
type VisionAnalysis struct {
	Description string   `json:"description"`
	Objects     []string `json:"objects"`
	Landmarks   []string `json:"landmarks"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	Confidence  int      `json:"confidence"`

	// Impact fields the vision prompt asks for alongside the scene
	// description. Optional; the formatter substitutes defaults.
	ImpactScore        int      `json:"impact_score"`
	ImpactCategory     string   `json:"impact_category"`
	Urgency            string   `json:"urgency"`
	EstimatedImpact    string   `json:"estimated_impact"`
	RecommendedActions []string `json:"recommended_actions"`
}

// ImpactAssessment is the derived impact record carried on every
// canonical analysis.
type ImpactAssessment struct {
	Score              int      `json:"score"`
	Category           string   `json:"category"`
	Urgency            string   `json:"urgency"`
	EstimatedImpact    string   `json:"estimatedImpact"`
	RecommendedActions []string `json:"recommendedActions"`
}

// RecordLocation nests coordinates with the resolved address parts.
type RecordLocation struct {
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	State       string      `json:"state,omitempty"`
	Country     string      `json:"country,omitempty"`
}

// RecordMetadata is the metadata section of the canonical record. Hash
// is the keccak-256 digest of the normalized image bytes and is the
// record's immutable identity.
type RecordMetadata struct {
	Timestamp  string         `json:"timestamp"`
	Camera     string         `json:"camera"`
	Resolution string         `json:"resolution"`
	Location   RecordLocation `json:"location"`
	Hash       string         `json:"hash"`

	// Set by the publisher once the evidence image is pinned.
	ImageCID string `json:"imageCid,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// RecordAnalysis is the analysis section of the canonical record.
type RecordAnalysis struct {
	Description string   `json:"description"`
	Objects     []string `json:"objects"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	Confidence  int      `json:"confidence"`
}

// RecordContext carries the optional provider outputs.
type RecordContext struct {
	Weather *WeatherContext `json:"weather"`
	News    []NewsArticle   `json:"news"`
}

// AIEnhancement is the tagline block appended after formatting.
// GeneratedAt is isolated here so it never participates in content
// identity.
type AIEnhancement struct {
	Tagline     string `json:"tagline"`
	Model       string `json:"model"`
	Provider    string `json:"provider"`
	GeneratedAt string `json:"generatedAt"`
}

// CanonicalAnalysisRecord is the single merged artifact produced per
// processed media file.
type CanonicalAnalysisRecord struct {
	Metadata         RecordMetadata   `json:"metadata"`
	Analysis         RecordAnalysis   `json:"analysis"`
	ImpactAssessment ImpactAssessment `json:"impactAssessment"`
	Context          RecordContext    `json:"context"`
	AIEnhancement    *AIEnhancement   `json:"aiEnhancement,omitempty"`
}

// ProcessedFileEntry is one append-only ledger row. A filename must
// never produce two successful entries with different proposal IDs.
type ProcessedFileEntry struct {
	Filename   string `json:"filename"`
	ProposalID string `json:"proposalId"`
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	TxHash     string `json:"txHash,omitempty"`
	IPFSCID    string `json:"ipfsCID,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ValidateRecord is the single chokepoint for analysis JSON read back
// from disk. It aggregates all problems into one error.
func ValidateRecord(data []byte) (*CanonicalAnalysisRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no data received from analysis file")
	}

	var record CanonicalAnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}

	var errs []string
	if record.Metadata.Timestamp == "" {
		errs = append(errs, "missing required field: metadata.timestamp")
	}
	if record.Analysis.Description == "" {
		errs = append(errs, "missing required field: analysis.description")
	}
	if record.ImpactAssessment.Score == 0 {
		errs = append(errs, "missing required field: impactAssessment.score")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("analysis data validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return &record, nil
}
