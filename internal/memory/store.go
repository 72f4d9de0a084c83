// Package memory implements the Episodic Memory Store (spec.md §4.2): the
// write-once-per-episode, read-many archive of (decision_context -> outcome)
// pairs that the trainer commits to and the multi-agent analyser retrieves
// similar episodes from.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/pkg/logger"
	"github.com/aristath/chronotrader/internal/timeoutcache"
)

// embeddingCacheTTL is the fixed 5-minute window spec.md §4.2.1 gives the
// content-hash embedding cache ("a 5-minute cache keyed by a content hash").
const embeddingCacheTTL = 5 * time.Minute

// Store ties the embedding backend, vector index, and leakage guard
// together behind the mode gate (spec.md §4.2).
type Store struct {
	mode      config.MemoryMode
	embedder  Embedder
	index     VectorIndex
	cache     *timeoutcache.Cache
	events    *events.Manager
	log       zerolog.Logger
	blocklist []string
}

// NewStore constructs a Store. cache may be nil, in which case embeddings
// are recomputed on every call (acceptable for tests; production wiring
// always supplies one per spec.md §4.2.1).
func NewStore(mode config.MemoryMode, embedder Embedder, index VectorIndex, cache *timeoutcache.Cache, em *events.Manager, log zerolog.Logger) *Store {
	return &Store{
		mode:      mode,
		embedder:  embedder,
		index:     index,
		cache:     cache,
		events:    em,
		log:       logger.Component(log, "memory.store"),
		blocklist: DefaultOutcomeBlocklist,
	}
}

// WithBlocklist overrides the default outcome-keyword blocklist. Returns the
// same Store for chaining at construction time.
func (s *Store) WithBlocklist(blocklist []string) *Store {
	s.blocklist = blocklist
	return s
}

func (s *Store) writable() bool { return s.mode == config.ModeTraining }

// AddEpisode commits a new episode. It builds decision_context from the
// whitelist (rejecting it via LeakageViolation if a blocklist token slips
// in), computes its embedding via GetEmbedding, and writes both to the
// vector index. In ANALYSIS mode it fails fast with MemoryDisabled and
// writes nothing (spec.md §4.2: "ANALYSIS: read-only").
func (s *Store) AddEpisode(ctx context.Context, ep domain.TradingEpisode) (string, error) {
	if !s.writable() {
		s.log.Warn().Str("symbol", ep.Symbol).Msg("memory: rejected write in ANALYSIS mode")
		return "", &MemoryDisabled{Reason: "store is in ANALYSIS mode"}
	}

	decisionContext, err := BuildDecisionContext(ep.MarketState, ep.Analyses, ep.DecisionChain, s.blocklist)
	if err != nil {
		return "", err
	}

	vec, err := s.GetEmbedding(ctx, decisionContext)
	if err != nil {
		return "", err
	}

	episodeID := ep.EpisodeID
	if episodeID == "" {
		episodeID = uuid.NewString()
	}

	if err := s.index.Add(ctx, VectorRecord{
		EpisodeID:       episodeID,
		Symbol:          ep.Symbol,
		DecisionContext: decisionContext,
		Vector:          vec,
	}); err != nil {
		return "", fmt.Errorf("memory: add episode: %w", err)
	}

	if s.events != nil {
		s.events.Emit("memory.store", &events.EpisodeCommittedData{
			EpisodeID: episodeID,
			Symbol:    ep.Symbol,
		})
	}
	return episodeID, nil
}

// RetrieveEpisodes returns the topK most similar committed episodes to
// query text, restricted to symbol. Available in both modes (spec.md §4.2:
// "RetrieveEpisodes remains fully functional" in ANALYSIS mode).
//
// Per spec.md §4.2, an unavailable embedding backend surfaces here as
// MemoryDisabled rather than EmbeddingServiceUnavailable (the error
// GetEmbedding itself raises) — retrieval degrades to "memory unavailable"
// rather than exposing the backend failure directly.
func (s *Store) RetrieveEpisodes(ctx context.Context, symbol, query string, topK int) ([]ScoredRecord, error) {
	vec, err := s.GetEmbedding(ctx, query)
	if err != nil {
		var unavailable *EmbeddingServiceUnavailable
		if errors.As(err, &unavailable) {
			return nil, &MemoryDisabled{Reason: unavailable.Error()}
		}
		return nil, err
	}
	results, err := s.index.Search(ctx, symbol, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("memory: retrieve episodes: %w", err)
	}
	return results, nil
}

// DeleteEpisode removes an episode from the index. Write-gated like
// AddEpisode.
func (s *Store) DeleteEpisode(ctx context.Context, episodeID string) error {
	if !s.writable() {
		return &MemoryDisabled{Reason: "store is in ANALYSIS mode"}
	}
	if err := s.index.Delete(ctx, episodeID); err != nil {
		return fmt.Errorf("memory: delete episode: %w", err)
	}
	return nil
}

// vectorizedDecisionFields is the set of fields UpdateEpisode rejects: any
// touch to these fields requires re-deriving decision_context and the
// vector from scratch via AddEpisode/DeleteEpisode instead, because a
// partial patch could silently desynchronize the stored vector from the
// stored text (invariant I2).
var vectorizedDecisionFields = map[string]bool{
	"market_state":   true,
	"analyses":       true,
	"decision_chain": true,
}

// UpdateEpisode patches non-vectorized metadata on an existing record.
// Patching a field named in vectorizedDecisionFields is rejected: callers
// must Delete and re-Add instead, so the vector and the decision_context
// text never drift apart (invariant I2).
func (s *Store) UpdateEpisode(ctx context.Context, episodeID string, fields map[string]interface{}) error {
	if !s.writable() {
		return &MemoryDisabled{Reason: "store is in ANALYSIS mode"}
	}
	for field := range fields {
		if vectorizedDecisionFields[field] {
			return fmt.Errorf("memory: update episode %q: field %q is vector-derived; delete and re-add instead", episodeID, field)
		}
	}
	rec, ok, err := s.index.Get(ctx, episodeID)
	if err != nil {
		return fmt.Errorf("memory: update episode: %w", err)
	}
	if !ok {
		return fmt.Errorf("memory: update episode: %q not found", episodeID)
	}
	if v, ok := fields["symbol"].(string); ok {
		rec.Symbol = v
	}
	if err := s.index.Update(ctx, rec); err != nil {
		return fmt.Errorf("memory: update episode: %w", err)
	}
	return nil
}

// GetEmbedding returns the embedding vector for text, applying chunk-and-
// average hygiene (spec.md §4.2.1) when text exceeds the backend's token
// budget, and caching the result for embeddingCacheTTL keyed by a content
// hash. A backend failure always returns a typed error — the store never
// treats a failed embedding call as a zero vector.
func (s *Store) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, &EmbeddingInvalidInput{Reason: "empty text"}
	}

	compute := func() ([]float64, error) { return s.embed(ctx, text) }

	if s.cache == nil {
		return compute()
	}

	sum := sha256.Sum256([]byte(text))
	key := "embedding:" + hex.EncodeToString(sum[:])
	return timeoutcache.Cached(s.cache, key, embeddingCacheTTL, compute)
}

func (s *Store) embed(ctx context.Context, text string) ([]float64, error) {
	maxChars := int(float64(s.embedder.TokenLimit()) * charsPerToken * chunkSizeFraction)
	if maxChars <= 0 {
		maxChars = 1
	}

	if len(text) <= maxChars {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			var unavailable *EmbeddingServiceUnavailable
			if !errors.As(err, &unavailable) {
				err = &EmbeddingServiceUnavailable{Cause: err}
			}
			return nil, err
		}
		return vec, nil
	}

	chunks := chunkText(text, maxChars)
	vecs := make([][]float64, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) > maxChars {
			return nil, &EmbeddingTextTooLong{Length: len(chunk), Limit: maxChars}
		}
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			var unavailable *EmbeddingServiceUnavailable
			if !errors.As(err, &unavailable) {
				err = &EmbeddingServiceUnavailable{Cause: err}
			}
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return averageVectors(vecs), nil
}
