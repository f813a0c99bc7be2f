// Package vectorstore is the gatekeeper and index for narrative
// embeddings. It only ever embeds validated narrative documents, never raw
// ledger records: the store is a derived, disposable cache that can be
// rebuilt losslessly from the aggregation engine's outputs.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultTopK is the number of results returned when the caller does
	// not ask for a specific count.
	DefaultTopK = 5

	// MinNarrativeLength is the advisory lower bound on narrative text
	// length. Shorter documents are accepted but logged, since they are
	// unlikely to be informative narratives.
	MinNarrativeLength = 20
)

// ReasonProviderNotInitialized is the rejection reason reported when no
// embedding provider is configured.
const ReasonProviderNotInitialized = "provider not initialized"

// Embedder is the embedding provider boundary: one batched call per
// document set, vectors returned in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// entry is one embedded narrative document. Entries are created on
// successful embedding and destroyed on Clear.
type entry struct {
	document  domain.NarrativeDocument
	embedding []float32
}

// AddResult reports the outcome of an AddDocuments call.
type AddResult struct {
	Total    int      `json:"total"`
	Added    int      `json:"added"`
	Rejected int      `json:"rejected"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Stats describes the store contents for readiness checks.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	ByType         map[string]int `json:"by_type"`
	ServiceReady   bool           `json:"service_ready"`
}

// Store is an in-memory semantic index over narrative documents. Reads may
// run concurrently; mutations (add, clear, regenerate) serialize on a
// single writer lock, and regeneration swaps in a fully built entry set so
// readers never observe a transiently empty store.
type Store struct {
	mu       sync.RWMutex
	entries  []entry
	embedder Embedder // nil means the provider is not configured
	log      zerolog.Logger
}

// NewStore creates a narrative store over the given embedder. A nil
// embedder is allowed: the store then rejects all additions and answers
// every query with an empty result.
func NewStore(embedder Embedder, log zerolog.Logger) *Store {
	return &Store{
		embedder: embedder,
		log:      log,
	}
}

// Ready reports whether an embedding provider is configured.
func (s *Store) Ready() bool {
	return s.embedder != nil
}

// Validate checks a document against the embedding whitelist. It returns
// nil for embeddable documents and a rejection reason otherwise. A
// below-threshold text length is advisory only: logged, never rejected.
func (s *Store) Validate(doc domain.NarrativeDocument) error {
	if doc.Type == "" {
		return fmt.Errorf("document missing required field: type")
	}
	if !doc.Type.Valid() {
		return fmt.Errorf("document type %q is not allowed", doc.Type)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("document text is empty")
	}
	if len(doc.Text) < MinNarrativeLength {
		s.log.Warn().
			Str("type", string(doc.Type)).
			Int("length", len(doc.Text)).
			Msg("Narrative text is very short; this might not be a proper narrative")
	}
	return nil
}

// AddDocuments validates every document, embeds the valid subset in a
// single batched provider call, and appends the results. Fail-closed: on
// any provider failure the whole submission is reported rejected and the
// store is left unchanged.
func (s *Store) AddDocuments(ctx context.Context, documents []domain.NarrativeDocument) AddResult {
	if len(documents) == 0 {
		return AddResult{}
	}

	next, result := s.buildEntries(ctx, documents)
	if len(next) == 0 {
		return result
	}

	s.mu.Lock()
	s.entries = append(s.entries, next...)
	total := len(s.entries)
	s.mu.Unlock()

	s.log.Info().
		Int("added", result.Added).
		Int("rejected", result.Rejected).
		Int("total", total).
		Msg("Added narrative documents to vector store")

	return result
}

// buildEntries validates and embeds a document set without touching the
// store. It is the shared path of AddDocuments and Regenerate.
func (s *Store) buildEntries(ctx context.Context, documents []domain.NarrativeDocument) ([]entry, AddResult) {
	result := AddResult{Total: len(documents)}

	if s.embedder == nil {
		s.log.Warn().Msg("Embedding provider not initialized; rejecting all documents")
		result.Rejected = len(documents)
		result.Reasons = []string{ReasonProviderNotInitialized}
		return nil, result
	}

	valid := make([]domain.NarrativeDocument, 0, len(documents))
	for _, doc := range documents {
		if err := s.Validate(doc); err != nil {
			s.log.Error().Err(err).Str("type", string(doc.Type)).Msg("Rejected narrative document")
			result.Rejected++
			result.Reasons = append(result.Reasons, err.Error())
			continue
		}
		valid = append(valid, doc)
	}
	if len(valid) == 0 {
		return nil, result
	}

	texts := make([]string, len(valid))
	for i, doc := range valid {
		texts[i] = doc.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil || len(embeddings) != len(texts) {
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
		}
		s.log.Error().Err(err).Msg("Embedding failed; rejecting entire batch")
		// Partial embedding results are never trusted.
		return nil, AddResult{
			Total:    len(documents),
			Rejected: len(documents),
			Reasons:  []string{err.Error()},
		}
	}

	next := make([]entry, len(valid))
	for i, doc := range valid {
		next[i] = entry{document: doc, embedding: embeddings[i]}
	}
	result.Added = len(valid)

	return next, result
}

// Query embeds the query text once and returns the topK most similar
// narrative documents, optionally restricted to one document type. Ties
// keep insertion order. An empty store, a missing provider, a filter that
// matches nothing, or an embedding failure all yield an empty result, not
// an error.
func (s *Store) Query(ctx context.Context, queryText string, topK int, typeFilter domain.DocumentType) []domain.RetrievalResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if s.embedder == nil {
		s.log.Warn().Msg("Embedding provider not initialized; cannot query vector store")
		return nil
	}

	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	if len(entries) == 0 {
		return nil
	}

	queryEmbeddings, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil || len(queryEmbeddings) != 1 {
		s.log.Error().Err(err).Msg("Query embedding failed")
		return nil
	}
	queryEmbedding := queryEmbeddings[0]

	results := make([]domain.RetrievalResult, 0, len(entries))
	for _, e := range entries {
		if typeFilter != "" && e.document.Type != typeFilter {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Text:       e.document.Text,
			Type:       e.document.Type,
			Metadata:   e.document.Metadata,
			Similarity: CosineSimilarity(queryEmbedding, e.embedding),
		})
	}
	if len(results) == 0 {
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return results
}

// Clear discards all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.log.Info().Msg("Narrative vector store cleared")
}

// Regenerate rebuilds the store from a fresh document set, equivalent to
// Clear followed by AddDocuments in final contents. The replacement entry
// set is built fully off to the side and swapped in as one atomic
// assignment, so a concurrent reader sees either the old generation or the
// new one, never an in-between state. Safe because the store is purely
// derived.
func (s *Store) Regenerate(ctx context.Context, documents []domain.NarrativeDocument) AddResult {
	next, result := s.buildEntries(ctx, documents)

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()

	s.log.Info().
		Int("added", result.Added).
		Int("rejected", result.Rejected).
		Msg("Vector store regeneration complete")

	return result
}

// Size returns the number of stored documents.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns the document count, the per-type breakdown and the
// provider readiness flag.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]int)
	for _, e := range s.entries {
		byType[string(e.document.Type)]++
	}

	return Stats{
		TotalDocuments: len(s.entries),
		ByType:         byType,
		ServiceReady:   s.embedder != nil,
	}
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|), or 0.0 when either
// vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	for i := n; i < len(a); i++ {
		magA += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
