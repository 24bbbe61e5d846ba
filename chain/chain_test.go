package chain

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"impact-agent/models"
)

func TestToFixedPoint(t *testing.T) {
	tests := []struct {
		coord float64
		want  int64
	}{
		{39.7392, 39739200},
		{-104.9903, -104990300},
		{0, 0},
		{0.0000015, 1},
		{-0.0000015, -2}, // floor, not truncation
		{90, 90000000},
		{-180, -180000000},
	}
	for _, tt := range tests {
		if got := ToFixedPoint(tt.coord); got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("ToFixedPoint(%v) = %v, want %d", tt.coord, got, tt.want)
		}
	}
}

func TestToTokenWei(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"100", "100000000000000000000"},
		{"1.5", "1500000000000000000"},
		{"0", "0"},
		{"not a number", "0"},
	}
	for _, tt := range tests {
		want, _ := big.NewInt(0).SetString(tt.want, 10)
		if got := ToTokenWei(tt.amount); got.Cmp(want) != 0 {
			t.Errorf("ToTokenWei(%q) = %v, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestToBytes32(t *testing.T) {
	hex := "0x" + strings.Repeat("ab", 32)
	if got := toBytes32(hex); got != ethcommon.HexToHash(hex) {
		t.Errorf("hex hash should pass through, got %x", got)
	}

	id := "PROP_39.739200_-104.990300"
	if got := toBytes32(id); got != crypto.Keccak256Hash([]byte(id)) {
		t.Errorf("plain identifier should be keccak hashed, got %x", got)
	}
}

func denverRecord() *models.CanonicalAnalysisRecord {
	r := &models.CanonicalAnalysisRecord{}
	r.Metadata.Timestamp = "2024-06-15T14:30:00Z"
	r.Metadata.Hash = "0xevidence"
	r.Metadata.Location.Coordinates = models.Coordinates{Lat: 39.7392, Lng: -104.9903}
	r.Metadata.Location.City = "Denver"
	r.Metadata.Location.State = "Colorado"
	r.Metadata.Location.Country = "United States"
	r.Analysis.Description = "A cracked sidewalk near a bus stop"
	r.Analysis.Confidence = 92
	r.ImpactAssessment = models.ImpactAssessment{
		Score:              85,
		Category:           "Infrastructure",
		Urgency:            "high",
		EstimatedImpact:    "Pedestrians at risk of tripping",
		RecommendedActions: []string{"Repair sidewalk", "Add signage"},
	}
	return r
}

func TestFallbackMetadata(t *testing.T) {
	meta := FallbackMetadata(denverRecord())

	if meta.Title != "Infrastructure issue in Denver" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Location != "Denver, Colorado, United States" {
		t.Errorf("location = %q", meta.Location)
	}
	if meta.Latitude != 39.7392 || meta.Longitude != -104.9903 {
		t.Errorf("coordinates = %v, %v", meta.Latitude, meta.Longitude)
	}
	if meta.Beneficiary != zeroAddress {
		t.Errorf("beneficiary = %q", meta.Beneficiary)
	}
	if meta.PropertyID != "PROP_39.739200_-104.990300" {
		t.Errorf("property id = %q", meta.PropertyID)
	}
	if meta.EvidenceHash != "0xevidence" {
		t.Errorf("evidence hash = %q", meta.EvidenceHash)
	}
	if meta.IssueType != int(models.IssueInfrastructure) {
		t.Errorf("issue type = %d", meta.IssueType)
	}
	if meta.Severity != int(models.SeverityHigh) {
		t.Errorf("severity = %d", meta.Severity)
	}
	if meta.VerificationConfidence != 92 {
		t.Errorf("confidence = %d", meta.VerificationConfidence)
	}
	if !strings.Contains(meta.Description, "Repair sidewalk") {
		t.Errorf("description missing actions: %q", meta.Description)
	}
}

func TestSimpleDescription(t *testing.T) {
	record := denverRecord()
	record.Context.Weather = &models.WeatherContext{Conditions: "Mainly clear", Temperature: -6.3}
	record.Context.News = []models.NewsArticle{
		{Title: "City repairs sidewalks"},
		{Title: "Budget approved"},
		{Title: "Third article never shown"},
	}

	got := SimpleDescription(record, "photo.jpg", "QmAnalysis123")

	for _, want := range []string{
		"Impact Initiative Proposal",
		"Location: Denver, Colorado, United States",
		"Coordinates: 39.7392, -104.9903",
		"Impact Score: 85",
		"Urgency: high",
		"- Weather: Mainly clear (-6.3°C)",
		"- City repairs sidewalks",
		"- Budget approved",
		"- Repair sidewalk",
		"- IPFS: https://gateway.pinata.cloud/ipfs/QmAnalysis123",
		"- Analysis File: photo.jpg",
		"- Confidence Score: 92%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("description missing %q", want)
		}
	}
	if strings.Contains(got, "Third article never shown") {
		t.Error("description should include at most two articles")
	}
}

func TestSimpleDescriptionWithoutContext(t *testing.T) {
	got := SimpleDescription(denverRecord(), "photo.jpg", "")

	if !strings.Contains(got, "- Weather: N/A") {
		t.Error("missing weather placeholder")
	}
	if strings.Contains(got, "Recent Related News") {
		t.Error("news section should be omitted without articles")
	}
	if strings.Contains(got, "IPFS:") {
		t.Error("IPFS line should be omitted without a CID")
	}
}

type stubPrompter struct {
	response string
	err      error
}

func (s stubPrompter) Prompt(prompt string, maxTokens int) (string, error) {
	return s.response, s.err
}

func TestEnhanceMetadataParsesModelOutput(t *testing.T) {
	p := stubPrompter{response: "```json\n" + `{
		"title": "Repair the Civic Center sidewalk",
		"description": "Cracked sidewalk poses a pedestrian hazard.",
		"location": "Denver, Colorado, United States",
		"requestedAmount": "250",
		"beneficiary": "",
		"propertyId": "",
		"evidenceHash": "",
		"verificationConfidence": 92,
		"issueType": 1,
		"severity": 2
	}` + "\n```"}

	meta := EnhanceMetadata(p, denverRecord())

	if meta.Title != "Repair the Civic Center sidewalk" {
		t.Errorf("title = %q", meta.Title)
	}
	// Record-derived fields always override the model.
	if meta.Latitude != 39.7392 || meta.Longitude != -104.9903 {
		t.Errorf("coordinates = %v, %v", meta.Latitude, meta.Longitude)
	}
	if meta.PropertyID != "PROP_39.739200_-104.990300" {
		t.Errorf("property id not backfilled: %q", meta.PropertyID)
	}
	if meta.EvidenceHash != "0xevidence" {
		t.Errorf("evidence hash not backfilled: %q", meta.EvidenceHash)
	}
	if meta.Beneficiary != zeroAddress {
		t.Errorf("beneficiary not defaulted: %q", meta.Beneficiary)
	}
}

func TestEnhanceMetadataFallsBack(t *testing.T) {
	tests := []struct {
		name string
		p    Prompter
	}{
		{"prompt error", stubPrompter{err: errors.New("model unavailable")}},
		{"unparseable output", stubPrompter{response: "I cannot help with that"}},
		{"missing title", stubPrompter{response: `{"description": "x"}`}},
		{"nil prompter", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := EnhanceMetadata(tt.p, denverRecord())
			if meta.Title != "Infrastructure issue in Denver" {
				t.Errorf("fallback not used, title = %q", meta.Title)
			}
		})
	}
}

func TestClampByte(t *testing.T) {
	if clampByte(-5) != 0 || clampByte(300) != 255 || clampByte(85) != 85 {
		t.Error("clampByte bounds wrong")
	}
}
