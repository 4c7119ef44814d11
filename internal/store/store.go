// Package store implements the PersistentStore (spec.md §4.8): a durable
// table of persons with a vector column and periodic bidirectional sync.
// Grounded directly on the teacher's internal/storage.PostgresStore —
// SearchFaces's cosine `<=>` query is the ancestor of ColdRead, and the
// pgxpool setup/Ping/Close shape is unchanged.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/reident/internal/config"
	"github.com/your-org/reident/internal/reidmodel"
)

// Store is the pgx/pgvector-backed PersistentStore implementation. It
// satisfies internal/engine.PersistentStore.
type Store struct {
	pool *pgxpool.Pool

	// nameCursorHint is set by SetNameCursorHint before each sync tick
	// that has dirty persons; 0 is a harmless no-op default.
	nameCursorHint int
}

// New connects to Postgres and verifies the connection, exactly like the
// teacher's NewPostgresStore.
func New(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// LoadActivePersons implements spec.md §4.7's cold-start backfill query:
// every person with is_active = true and embedding IS NOT NULL.
func (s *Store) LoadActivePersons(ctx context.Context) ([]*reidmodel.GlobalPerson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT global_id, embedding, embedding_quality, clothing_hist, skin_tone,
		       avg_height_px, avg_width_px, dimension_samples, cameras_visited,
		       first_seen_ts, last_seen_ts, total_appearances, is_active,
		       assigned_name, best_snapshot_key
		FROM persons
		WHERE is_active = true AND embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("load active persons: %w", err)
	}
	defer rows.Close()

	var out []*reidmodel.GlobalPerson
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadNameCursor returns the auto-naming pool's persisted cursor (spec.md
// §9 / DESIGN.md Open Question 3), defaulting to 0 on an empty table.
func (s *Store) LoadNameCursor(ctx context.Context) (int, error) {
	var cursor int
	err := s.pool.QueryRow(ctx, `SELECT next_name_index FROM name_pool_cursor WHERE id = 1`).Scan(&cursor)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("load name cursor: %w", err)
	}
	return cursor, nil
}

// ColdRead implements spec.md §4.8's cache-miss fallback query: cosine
// search over every persisted embedding (active or not), accepting the
// top result if its similarity clears threshold.
func (s *Store) ColdRead(ctx context.Context, embedding []float32, threshold float64) (*reidmodel.GlobalPerson, bool, error) {
	vec := pgvector.NewVector(embedding)

	row := s.pool.QueryRow(ctx, `
		SELECT global_id, embedding, embedding_quality, clothing_hist, skin_tone,
		       avg_height_px, avg_width_px, dimension_samples, cameras_visited,
		       first_seen_ts, last_seen_ts, total_appearances, is_active,
		       assigned_name, best_snapshot_key,
		       1 - (embedding <=> $1) AS sim
		FROM persons
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT 1`, vec)

	var embVec pgvector.Vector
	var assignedName *string
	var camerasJSON []byte
	var sim float64
	p := &reidmodel.GlobalPerson{}

	err := row.Scan(&p.GlobalID, &embVec, &p.EmbeddingQuality, &p.ClothingHist, &p.SkinTone,
		&p.AvgHeightPx, &p.AvgWidthPx, &p.DimensionSample, &camerasJSON,
		&p.FirstSeenTS, &p.LastSeenTS, &p.TotalAppearances, &p.IsActive,
		&assignedName, &p.BestSnapshotKey, &sim)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cold read: %w", err)
	}

	if sim < threshold {
		return nil, false, nil
	}

	p.Embedding = embVec.Slice()
	if assignedName != nil {
		p.AssignedName = *assignedName
	}
	p.CamerasVisited = decodeCameraSet(camerasJSON)
	return p, true, nil
}

// SyncDirty implements spec.md §4.8's sync protocol: upsert every given
// person's mutable fields in one transaction, last-writer-wins on
// conflict (same global_id — the PRIMARY KEY upsert target).
func (s *Store) SyncDirty(ctx context.Context, persons []*reidmodel.GlobalPerson) error {
	if len(persons) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sync tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range persons {
		camerasJSON, err := encodeCameraSet(p.CamerasVisited)
		if err != nil {
			return fmt.Errorf("encode cameras_visited for %d: %w", p.GlobalID, err)
		}

		positionsJSON, err := encodeCurrentPositions(p.CurrentPositions)
		if err != nil {
			return fmt.Errorf("encode current_positions for %d: %w", p.GlobalID, err)
		}

		var vec *pgvector.Vector
		if len(p.Embedding) > 0 {
			v := pgvector.NewVector(p.Embedding)
			vec = &v
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO persons (
				global_id, embedding, embedding_quality, clothing_hist, skin_tone,
				avg_height_px, avg_width_px, dimension_samples, cameras_visited,
				current_positions, first_seen_ts, last_seen_ts, total_appearances,
				is_active, assigned_name, best_snapshot_key
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (global_id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				embedding_quality = EXCLUDED.embedding_quality,
				clothing_hist = EXCLUDED.clothing_hist,
				skin_tone = EXCLUDED.skin_tone,
				avg_height_px = EXCLUDED.avg_height_px,
				avg_width_px = EXCLUDED.avg_width_px,
				dimension_samples = EXCLUDED.dimension_samples,
				cameras_visited = EXCLUDED.cameras_visited,
				current_positions = EXCLUDED.current_positions,
				last_seen_ts = EXCLUDED.last_seen_ts,
				total_appearances = EXCLUDED.total_appearances,
				is_active = EXCLUDED.is_active,
				assigned_name = EXCLUDED.assigned_name,
				best_snapshot_key = EXCLUDED.best_snapshot_key`,
			p.GlobalID, vec, p.EmbeddingQuality, p.ClothingHist, p.SkinTone,
			p.AvgHeightPx, p.AvgWidthPx, p.DimensionSample, camerasJSON,
			positionsJSON, p.FirstSeenTS, p.LastSeenTS, p.TotalAppearances, p.IsActive,
			nullableString(p.AssignedName), p.BestSnapshotKey)
		if err != nil {
			return fmt.Errorf("upsert person %d: %w", p.GlobalID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO name_pool_cursor (id, next_name_index) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET next_name_index = GREATEST(name_pool_cursor.next_name_index, EXCLUDED.next_name_index)`,
		s.nameCursorHint); err != nil {
		return fmt.Errorf("persist name cursor: %w", err)
	}

	return tx.Commit(ctx)
}

// SetNameCursorHint records the name pool's current cursor so the next
// SyncDirty call persists it alongside the dirty persons.
func (s *Store) SetNameCursorHint(cursor int) { s.nameCursorHint = cursor }

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func encodeCameraSet(set map[string]struct{}) ([]byte, error) {
	cams := make([]string, 0, len(set))
	for c := range set {
		cams = append(cams, c)
	}
	return json.Marshal(cams)
}

// encodeCurrentPositions persists current_positions for audit/durability
// only (spec.md §4.8); Engine.Bootstrap always discards the column on
// cold-start backfill (internal/engine/engine.go), so no decode
// counterpart reads it back into the live gallery.
func encodeCurrentPositions(positions map[string]reidmodel.Position) ([]byte, error) {
	if positions == nil {
		positions = map[string]reidmodel.Position{}
	}
	return json.Marshal(positions)
}

func decodeCameraSet(data []byte) map[string]struct{} {
	var cams []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &cams)
	}
	set := make(map[string]struct{}, len(cams))
	for _, c := range cams {
		set[c] = struct{}{}
	}
	return set
}

// rowScanner abstracts pgx.Row/pgx.Rows so scanPerson serves both
// LoadActivePersons (Rows) and single-row lookups (Row).
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(row rowScanner) (*reidmodel.GlobalPerson, error) {
	p := &reidmodel.GlobalPerson{}
	var embVec pgvector.Vector
	var camerasJSON []byte
	var assignedName *string

	err := row.Scan(&p.GlobalID, &embVec, &p.EmbeddingQuality, &p.ClothingHist, &p.SkinTone,
		&p.AvgHeightPx, &p.AvgWidthPx, &p.DimensionSample, &camerasJSON,
		&p.FirstSeenTS, &p.LastSeenTS, &p.TotalAppearances, &p.IsActive,
		&assignedName, &p.BestSnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	p.Embedding = embVec.Slice()
	if assignedName != nil {
		p.AssignedName = *assignedName
	}
	p.CamerasVisited = decodeCameraSet(camerasJSON)
	return p, nil
}
