package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/floats"
)

// VectorRecord is one entry in a VectorIndex: an episode's embedding plus
// the decision-time text and whitelisted metadata that RetrieveEpisodes
// returns alongside the similarity score. It deliberately carries no
// TradeOutcome field (invariant I1 — see leakage.go).
type VectorRecord struct {
	EpisodeID       string
	Symbol          string
	DecisionContext string
	Vector          []float64
}

// ScoredRecord pairs a VectorRecord with its cosine similarity to a query
// vector.
type ScoredRecord struct {
	VectorRecord
	Score float64
}

// VectorIndex is the external vector-index dependency (spec.md §6): stores
// fixed-length embeddings keyed by episode id and serves nearest-neighbor
// search. Grounded on the DiskTier pattern in internal/timeoutcache/disk.go.
type VectorIndex interface {
	Add(ctx context.Context, rec VectorRecord) error
	Update(ctx context.Context, rec VectorRecord) error
	Delete(ctx context.Context, episodeID string) error
	Get(ctx context.Context, episodeID string) (VectorRecord, bool, error)
	Search(ctx context.Context, symbol string, query []float64, topK int) ([]ScoredRecord, error)
}

// SQLiteVectorIndex is a VectorIndex backed by modernc.org/sqlite. It keeps
// the full candidate set for a symbol in memory at search time (brute-force
// cosine scan) — adequate for the per-symbol episode counts this system
// deals in (single-digit thousands), and it avoids pulling in a dedicated
// ANN library the example pack never imports.
type SQLiteVectorIndex struct {
	db *sql.DB
}

// OpenVectorIndex opens (creating if necessary) a sqlite-backed vector
// index at path.
func OpenVectorIndex(path string) (*SQLiteVectorIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open vector index: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: set wal mode: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS episode_vectors (
	episode_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	decision_context TEXT NOT NULL,
	vector BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episode_vectors_symbol ON episode_vectors(symbol);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: create vector index schema: %w", err)
	}
	return &SQLiteVectorIndex{db: db}, nil
}

func (v *SQLiteVectorIndex) Close() error { return v.db.Close() }

func (v *SQLiteVectorIndex) Add(ctx context.Context, rec VectorRecord) error {
	blob, err := msgpack.Marshal(rec.Vector)
	if err != nil {
		return fmt.Errorf("memory: marshal vector: %w", err)
	}
	_, err = v.db.ExecContext(ctx,
		`INSERT INTO episode_vectors (episode_id, symbol, decision_context, vector) VALUES (?, ?, ?, ?)`,
		rec.EpisodeID, rec.Symbol, rec.DecisionContext, blob)
	if err != nil {
		return fmt.Errorf("memory: insert vector record: %w", err)
	}
	return nil
}

func (v *SQLiteVectorIndex) Update(ctx context.Context, rec VectorRecord) error {
	blob, err := msgpack.Marshal(rec.Vector)
	if err != nil {
		return fmt.Errorf("memory: marshal vector: %w", err)
	}
	res, err := v.db.ExecContext(ctx,
		`UPDATE episode_vectors SET symbol = ?, decision_context = ?, vector = ? WHERE episode_id = ?`,
		rec.Symbol, rec.DecisionContext, blob, rec.EpisodeID)
	if err != nil {
		return fmt.Errorf("memory: update vector record: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory: update vector record: episode %q not found", rec.EpisodeID)
	}
	return nil
}

func (v *SQLiteVectorIndex) Delete(ctx context.Context, episodeID string) error {
	_, err := v.db.ExecContext(ctx, `DELETE FROM episode_vectors WHERE episode_id = ?`, episodeID)
	if err != nil {
		return fmt.Errorf("memory: delete vector record: %w", err)
	}
	return nil
}

func (v *SQLiteVectorIndex) Get(ctx context.Context, episodeID string) (VectorRecord, bool, error) {
	row := v.db.QueryRowContext(ctx,
		`SELECT episode_id, symbol, decision_context, vector FROM episode_vectors WHERE episode_id = ?`, episodeID)
	var rec VectorRecord
	var blob []byte
	if err := row.Scan(&rec.EpisodeID, &rec.Symbol, &rec.DecisionContext, &blob); err != nil {
		if err == sql.ErrNoRows {
			return VectorRecord{}, false, nil
		}
		return VectorRecord{}, false, fmt.Errorf("memory: get vector record: %w", err)
	}
	if err := msgpack.Unmarshal(blob, &rec.Vector); err != nil {
		return VectorRecord{}, false, fmt.Errorf("memory: unmarshal vector: %w", err)
	}
	return rec, true, nil
}

func (v *SQLiteVectorIndex) Search(ctx context.Context, symbol string, query []float64, topK int) ([]ScoredRecord, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT episode_id, symbol, decision_context, vector FROM episode_vectors WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, fmt.Errorf("memory: search vector index: %w", err)
	}
	defer rows.Close()

	var candidates []ScoredRecord
	for rows.Next() {
		var rec VectorRecord
		var blob []byte
		if err := rows.Scan(&rec.EpisodeID, &rec.Symbol, &rec.DecisionContext, &blob); err != nil {
			return nil, fmt.Errorf("memory: scan vector row: %w", err)
		}
		if err := msgpack.Unmarshal(blob, &rec.Vector); err != nil {
			return nil, fmt.Errorf("memory: unmarshal vector: %w", err)
		}
		candidates = append(candidates, ScoredRecord{VectorRecord: rec, Score: cosineSimilarity(query, rec.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterate vector rows: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// cosineSimilarity compares only the common prefix of vectors of different
// lengths, and returns 0 when either side is empty or has zero norm rather
// than dividing by zero.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if n > len(b) {
		n = len(b)
	}
	a, b = a[:n], b[:n]
	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
