package models

import "strings"

// IssueType is the closed proposal classification set stored on chain.
type IssueType uint8

const (
	IssueEnvironmental IssueType = iota
	IssueInfrastructure
	IssueHealthcare
	IssueEducation
	IssueHumanitarian
	IssueEconomic
	IssueSocial
)

func (t IssueType) String() string {
	switch t {
	case IssueEnvironmental:
		return "Environmental"
	case IssueInfrastructure:
		return "Infrastructure"
	case IssueHealthcare:
		return "Healthcare"
	case IssueEducation:
		return "Education"
	case IssueHumanitarian:
		return "Humanitarian"
	case IssueEconomic:
		return "Economic"
	case IssueSocial:
		return "Social"
	}
	return "Unknown"
}

// IssueTypeFromCategory maps a free-text category label to the closest
// enum value. Infrastructure is the default: most photo reports are
// built-environment issues.
func IssueTypeFromCategory(category string) IssueType {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "environment"), strings.Contains(c, "pollution"),
		strings.Contains(c, "litter"), strings.Contains(c, "waste"):
		return IssueEnvironmental
	case strings.Contains(c, "health"), strings.Contains(c, "medical"):
		return IssueHealthcare
	case strings.Contains(c, "education"), strings.Contains(c, "school"):
		return IssueEducation
	case strings.Contains(c, "humanitarian"), strings.Contains(c, "disaster"),
		strings.Contains(c, "emergency"):
		return IssueHumanitarian
	case strings.Contains(c, "econom"), strings.Contains(c, "business"):
		return IssueEconomic
	case strings.Contains(c, "social"), strings.Contains(c, "community"):
		return IssueSocial
	default:
		return IssueInfrastructure
	}
}

// Severity is the closed severity set stored on chain.
type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	}
	return "Unknown"
}

// SeverityFromUrgency maps the impact assessment urgency label and
// score to a severity. The urgency label wins; the score breaks ties
// for unlabeled records.
func SeverityFromUrgency(urgency string, score int) Severity {
	switch strings.ToLower(strings.TrimSpace(urgency)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	}
	switch {
	case score >= 90:
		return SeverityCritical
	case score >= 70:
		return SeverityHigh
	case score >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
