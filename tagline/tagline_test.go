package tagline

import (
	"errors"
	"strings"
	"testing"

	"impact-agent/models"
)

func recordWith(description, urgency, city string) *models.CanonicalAnalysisRecord {
	r := &models.CanonicalAnalysisRecord{}
	r.Analysis.Description = description
	r.ImpactAssessment.Urgency = urgency
	r.Metadata.Location.City = city
	return r
}

func TestRuleBasedIssueTypes(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"A large pothole in the street", "road damage"},
		{"Broken pavement slabs by the school", "sidewalk damage"},
		{"A blocked storm drain overflowing", "drainage issue"},
		{"A flickering street lamp at night", "lighting issue"},
		{"Graffiti covering the wall", "infrastructure issue"},
	}

	g := NewRuleBased()
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := g.Generate(recordWith(tt.description, "low", ""))
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if !strings.Contains(got.Tagline, tt.want) {
				t.Errorf("tagline %q does not mention %q", got.Tagline, tt.want)
			}
		})
	}
}

func TestRuleBasedUrgencyPrefix(t *testing.T) {
	g := NewRuleBased()

	got, err := g.Generate(recordWith("a pothole", "critical", ""))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(got.Tagline, "Critical: ") {
		t.Errorf("tagline %q missing critical prefix", got.Tagline)
	}

	got, _ = g.Generate(recordWith("a pothole", "high", ""))
	if !strings.HasPrefix(got.Tagline, "Urgent: ") {
		t.Errorf("tagline %q missing urgent prefix", got.Tagline)
	}

	got, _ = g.Generate(recordWith("a pothole", "low", ""))
	if strings.HasPrefix(got.Tagline, "Urgent") || strings.HasPrefix(got.Tagline, "Critical") {
		t.Errorf("tagline %q should have no prefix for low urgency", got.Tagline)
	}
}

func TestRuleBasedLocationSuffix(t *testing.T) {
	g := NewRuleBased()
	got, err := g.Generate(recordWith("a pothole", "low", "Denver"))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := "road damage in Denver requires community action"
	if got.Tagline != want {
		t.Errorf("tagline = %q, want %q", got.Tagline, want)
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(*models.CanonicalAnalysisRecord) (*models.AIEnhancement, error) {
	return nil, errors.New("model unavailable")
}
func (failingGenerator) Model() string    { return "broken" }
func (failingGenerator) Provider() string { return "test" }

func TestEnhanceFallsBackOnError(t *testing.T) {
	record := recordWith("anything", "low", "")
	Enhance(failingGenerator{}, record)

	if record.AIEnhancement == nil {
		t.Fatal("enhancement block missing after fallback")
	}
	if record.AIEnhancement.Tagline != FallbackTagline {
		t.Errorf("tagline = %q, want fallback %q", record.AIEnhancement.Tagline, FallbackTagline)
	}
	if record.AIEnhancement.GeneratedAt == "" {
		t.Error("GeneratedAt should be set on the fallback block")
	}
}

func TestEnhanceAttachesGeneratedBlock(t *testing.T) {
	record := recordWith("a pothole", "high", "Denver")
	Enhance(NewRuleBased(), record)

	if record.AIEnhancement == nil {
		t.Fatal("enhancement block missing")
	}
	if record.AIEnhancement.Model != "rule-based-v1" || record.AIEnhancement.Provider != "impact-agent" {
		t.Errorf("attribution = %q/%q", record.AIEnhancement.Model, record.AIEnhancement.Provider)
	}
}
