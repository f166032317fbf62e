package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"github.com/pgvector/pgvector-go"
)

// CatalogRepository stores the reference catalog in PostgreSQL. Poses are kept
// as flattened pgvector columns; row position preserves catalog order.
type CatalogRepository struct {
	pool *Pool
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(pool *Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Save replaces the stored catalog with entries in a single transaction.
// onInsert, if non-nil, is called after each inserted entry.
func (r *CatalogRepository) Save(ctx context.Context, entries []catalog.Entry, onInsert func()) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM reference_entries"); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_entries (id, position, image, species, pose, confidence, has_pose, synthetic)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var vec any
		if len(e.Pose) > 0 {
			vec = pgvector.NewVector(e.Pose.Flatten())
		}
		if _, err := stmt.ExecContext(ctx, e.ID, i, e.Image, e.Species, vec, e.Confidence, e.HasPose, e.Synthetic); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		if onInsert != nil {
			onInsert()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

// Load returns the stored entries in catalog order. It satisfies
// catalog.Source.
func (r *CatalogRepository) Load(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, image, species, pose::text, confidence, has_pose, synthetic
		FROM reference_entries
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reference_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	return count, nil
}

// Nearest returns up to limit entries whose stored pose is closest to kp by
// Euclidean distance over all landmarks. Entries with a different landmark
// count are not comparable and are skipped. Score uses the matcher's
// upper-body scale so results line up with catalog.PoseIndex.
func (r *CatalogRepository) Nearest(ctx context.Context, kp pose.Keypoints, limit int) ([]catalog.Neighbor, error) {
	flat := kp.Flatten()
	if len(flat) == 0 {
		return nil, fmt.Errorf("query pose is empty")
	}
	vec := pgvector.NewVector(flat)

	rows, err := r.pool.Query(ctx, `
		SELECT id, image, species, pose::text, confidence, has_pose, synthetic, pose <-> $1::vector AS distance
		FROM reference_entries
		WHERE pose IS NOT NULL AND vector_dims(pose) = $2
		ORDER BY distance, position
		LIMIT $3
	`, vec, len(flat), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Neighbor
	for rows.Next() {
		var distance float64
		e, err := scanEntry(rows, &distance)
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.Neighbor{
			Entry:    e,
			ID:       e.ID,
			Species:  e.Species,
			Distance: math.Round(distance*10000) / 10000,
			Score:    math.Round(max(0, 100-pose.UpperBodyDistance(kp, e.Pose)*30)*10) / 10,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows, extra ...any) (catalog.Entry, error) {
	var e catalog.Entry
	var poseText sql.NullString
	dest := append([]any{&e.ID, &e.Image, &e.Species, &poseText, &e.Confidence, &e.HasPose, &e.Synthetic}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	if poseText.Valid {
		var vec pgvector.Vector
		if err := vec.Scan(poseText.String); err != nil {
			return e, fmt.Errorf("parse pose of %s: %w", e.ID, err)
		}
		e.Pose = pose.FromFlat(vec.Slice())
	}
	return e, nil
}
