package domain

import (
	"strings"
)

// DocumentType enumerates the narrative document kinds that may ever be
// embedded. Anything outside this set is rejected by the store.
type DocumentType string

const (
	DocTypeMonthlySummary  DocumentType = "monthly_summary"
	DocTypeCategorySummary DocumentType = "category_summary"
	DocTypeAnomaly         DocumentType = "anomaly"
	DocTypeYearlyOverview  DocumentType = "yearly_overview"
	DocTypeNote            DocumentType = "note" // user annotations
)

// AllowedDocumentTypes is the embedding whitelist.
var AllowedDocumentTypes = map[DocumentType]bool{
	DocTypeMonthlySummary:  true,
	DocTypeCategorySummary: true,
	DocTypeAnomaly:         true,
	DocTypeYearlyOverview:  true,
	DocTypeNote:            true,
}

// ForbiddenTypePatterns are substrings that must never appear in a document
// type. They guard against raw transaction data slipping into the store.
var ForbiddenTypePatterns = []string{"transaction", "raw", "individual"}

// Valid reports whether t belongs to the whitelist and carries no
// forbidden pattern.
func (t DocumentType) Valid() bool {
	lower := DocumentType(strings.ToLower(string(t)))
	if !AllowedDocumentTypes[lower] {
		return false
	}
	for _, pattern := range ForbiddenTypePatterns {
		if strings.Contains(string(lower), pattern) {
			return false
		}
	}
	return true
}

// DocumentMetadata carries the contextual keys of a narrative document.
// Zero values mean "not applicable" (e.g. a yearly overview has no month).
type DocumentMetadata struct {
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Category string `json:"category,omitempty"`
}

// NarrativeDocument is a whitelisted natural-language summary derived from
// SQL aggregates. It is the only unit ever embedded: documents are created
// by the narrative generator, consumed by the vector store, and never
// mutated afterwards. Regeneration replaces documents, it does not edit
// them.
type NarrativeDocument struct {
	Text     string           `json:"text"`
	Type     DocumentType     `json:"type"`
	Metadata DocumentMetadata `json:"metadata"`
}

// RetrievalResult is one ranked hit from a store query. It is ephemeral:
// produced per query and never stored.
type RetrievalResult struct {
	Text       string           `json:"text"`
	Type       DocumentType     `json:"type"`
	Metadata   DocumentMetadata `json:"metadata"`
	Similarity float64          `json:"similarity"` // cosine, in [-1, 1]
}

// Confidence classifies how well an answer is grounded.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// ConfidenceFromSimilarity maps a best cosine similarity score to a tier.
// Thresholds are inclusive at the lower bound.
func ConfidenceFromSimilarity(similarity float64) Confidence {
	switch {
	case similarity >= 0.85:
		return ConfidenceHigh
	case similarity >= 0.65:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
