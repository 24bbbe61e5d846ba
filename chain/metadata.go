package chain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apex/log"

	"impact-agent/models"
	"impact-agent/providers/vision"
)

// ProposalMetadata is the structured argument set for the thirteen
// parameter createProposal variant.
type ProposalMetadata struct {
	Title                  string  `json:"title"`
	Description            string  `json:"description"`
	Location               string  `json:"location"`
	Latitude               float64 `json:"latitude"`
	Longitude              float64 `json:"longitude"`
	RequestedAmount        string  `json:"requestedAmount"`
	Beneficiary            string  `json:"beneficiary"`
	PropertyID             string  `json:"propertyId"`
	EvidenceHash           string  `json:"evidenceHash"`
	VerificationConfidence int     `json:"verificationConfidence"`
	IssueType              int     `json:"issueType"`
	Severity               int     `json:"severity"`
	IPFSCID                string  `json:"ipfsCID"`
}

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Prompter produces a text completion for a prompt. *vision.Client
// satisfies it.
type Prompter interface {
	Prompt(prompt string, maxTokens int) (string, error)
}

const metadataPromptTemplate = `You are an AI assistant helping to create structured proposal metadata for a DAO governance system.

Given the following analysis data, extract and generate the required metadata fields:

ANALYSIS DATA:
%s

REQUIRED OUTPUT (JSON format):
{
  "title": "Short, descriptive title (max 100 chars)",
  "description": "Detailed description of the issue and proposed solution",
  "location": "Human-readable location string",
  "requestedAmount": "Estimated funding needed in ADI tokens (numeric string)",
  "beneficiary": "Ethereum address or 0x0000000000000000000000000000000000000000 if unknown",
  "propertyId": "Unique identifier for this location/property (generate from coordinates)",
  "evidenceHash": "Hash of the evidence (use metadata.hash or generate from data)",
  "verificationConfidence": "Confidence score 0-100 (from analysis.confidence)",
  "issueType": "0=Environmental, 1=Infrastructure, 2=Healthcare, 3=Education, 4=Humanitarian, 5=Economic, 6=Social",
  "severity": "0=Low, 1=Medium, 2=High, 3=Critical (based on urgency and impact score)"
}

INSTRUCTIONS:
1. Create a compelling title that captures the essence of the issue
2. Write a clear description that includes the problem, proposed solution, and expected impact
3. Format location as "City, State, Country" or best available
4. Estimate funding based on the impact assessment and recommended actions (reasonable amount in ADI)
5. Use 0x0000000000000000000000000000000000000000 for beneficiary if not specified
6. Generate propertyId from coordinates (format: "PROP_LAT_LNG")
7. Use existing hash or generate one from the data
8. Map the category to the most appropriate issueType enum value
9. Determine severity based on urgency field and impact score

Return ONLY valid JSON, no additional text.`

// EnhanceMetadata asks the LLM to turn a canonical analysis record
// into structured proposal metadata. On any failure it falls back to
// the deterministic builder so a transient model outage never blocks
// submission.
func EnhanceMetadata(p Prompter, record *models.CanonicalAnalysisRecord) *ProposalMetadata {
	meta, err := enhanceWithModel(p, record)
	if err != nil {
		log.Warnf("Metadata enhancement failed, using deterministic fallback: %v", err)
		return FallbackMetadata(record)
	}
	return meta
}

func enhanceWithModel(p Prompter, record *models.CanonicalAnalysisRecord) (*ProposalMetadata, error) {
	if p == nil {
		return nil, fmt.Errorf("no prompter configured")
	}

	analysisJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	response, err := p.Prompt(fmt.Sprintf(metadataPromptTemplate, string(analysisJSON)), 2000)
	if err != nil {
		return nil, fmt.Errorf("metadata prompt: %w", err)
	}

	var meta ProposalMetadata
	if err := json.Unmarshal([]byte(vision.ExtractJSON(response)), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	if meta.Title == "" || meta.Description == "" {
		return nil, fmt.Errorf("metadata response missing title or description")
	}
	if meta.Beneficiary == "" {
		meta.Beneficiary = zeroAddress
	}
	if meta.RequestedAmount == "" {
		meta.RequestedAmount = "100"
	}

	// Coordinates always come from the record, never from the model.
	coords := record.Metadata.Location.Coordinates
	meta.Latitude = coords.Lat
	meta.Longitude = coords.Lng
	if meta.PropertyID == "" {
		meta.PropertyID = propertyID(coords)
	}
	if meta.EvidenceHash == "" {
		meta.EvidenceHash = record.Metadata.Hash
	}
	return &meta, nil
}

// FallbackMetadata builds proposal metadata from the record alone.
func FallbackMetadata(record *models.CanonicalAnalysisRecord) *ProposalMetadata {
	coords := record.Metadata.Location.Coordinates
	location := locationString(record)
	assessment := record.ImpactAssessment

	title := fmt.Sprintf("%s issue", assessment.Category)
	if location != "" {
		title = fmt.Sprintf("%s issue in %s", assessment.Category, firstPart(location))
	}

	desc := fmt.Sprintf("%s\n\nEstimated impact: %s\n\nRecommended actions:\n%s",
		record.Analysis.Description,
		assessment.EstimatedImpact,
		bulletList(assessment.RecommendedActions))

	issueType := models.IssueTypeFromCategory(assessment.Category)
	severity := models.SeverityFromUrgency(assessment.Urgency, assessment.Score)

	return &ProposalMetadata{
		Title:                  title,
		Description:            desc,
		Location:               location,
		Latitude:               coords.Lat,
		Longitude:              coords.Lng,
		RequestedAmount:        "100",
		Beneficiary:            zeroAddress,
		PropertyID:             propertyID(coords),
		EvidenceHash:           record.Metadata.Hash,
		VerificationConfidence: record.Analysis.Confidence,
		IssueType:              int(issueType),
		Severity:               int(severity),
	}
}

func propertyID(c models.Coordinates) string {
	return fmt.Sprintf("PROP_%.6f_%.6f", c.Lat, c.Lng)
}

func locationString(record *models.CanonicalAnalysisRecord) string {
	loc := record.Metadata.Location
	parts := []string{}
	for _, p := range []string{loc.City, loc.State, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstPart(location string) string {
	if idx := strings.Index(location, ","); idx != -1 {
		return location[:idx]
	}
	return location
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- Assessment by local authorities"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// SimpleDescription renders the plain-text proposal body used by the
// single argument createProposal variant.
func SimpleDescription(record *models.CanonicalAnalysisRecord, filename, ipfsCID string) string {
	location := locationString(record)
	coords := record.Metadata.Location.Coordinates
	assessment := record.ImpactAssessment

	weatherLine := "- Weather: N/A"
	if w := record.Context.Weather; w != nil {
		weatherLine = fmt.Sprintf("- Weather: %s (%.1f°C)", w.Conditions, w.Temperature)
	}

	newsBlock := ""
	if articles := record.Context.News; len(articles) > 0 {
		max := len(articles)
		if max > 2 {
			max = 2
		}
		lines := make([]string, max)
		for i := 0; i < max; i++ {
			lines[i] = "- " + articles[i].Title
		}
		newsBlock = "\nRecent Related News:\n" + strings.Join(lines, "\n") + "\n"
	}

	evidence := fmt.Sprintf("- Analysis File: %s\n- Confidence Score: %d%%", filename, record.Analysis.Confidence)
	if ipfsCID != "" {
		evidence = fmt.Sprintf("- IPFS: https://gateway.pinata.cloud/ipfs/%s\n%s\n- Timestamp: %s",
			ipfsCID, evidence, record.Metadata.Timestamp)
	}

	return strings.TrimSpace(fmt.Sprintf(`Impact Initiative Proposal

Location: %s
Coordinates: %v, %v
Impact Score: %d
Urgency: %s
Category: %s

Description:
%s

Current Conditions:
%s
%s
Estimated Impact:
%s

Recommended Actions:
%s

Evidence & Verification:
%s

This proposal has been automatically generated from verified analysis data.
All information has been validated and can be independently reviewed.`,
		location, coords.Lat, coords.Lng,
		assessment.Score, assessment.Urgency, assessment.Category,
		record.Analysis.Description,
		weatherLine, newsBlock,
		assessment.EstimatedImpact,
		bulletList(assessment.RecommendedActions),
		evidence))
}
