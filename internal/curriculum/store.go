// Package curriculum persists curriculum chunks in PostgreSQL and serves
// filtered approximate-nearest-neighbor search over their embeddings.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrDimensionMismatch indicates a vector whose width does not match the
// store's configured embedding dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// chunkCols is the metadata column list returned by search and scans.
// The embedding column is deliberately absent: callers never see vectors.
const chunkCols = `id, grade, subject, term, unit_number, unit_name,
	lesson_number, lesson_name, idea_title, content`

// Store manages curriculum chunks backed by PostgreSQL + pgvector.
//
// The pool is constructed once at startup and shared by reference; Store is
// safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	dim    int
	logger *slog.Logger
}

// NewStore creates a curriculum Store. dim is the embedding width the
// schema was created with (3072 by default).
func NewStore(pool *pgxpool.Pool, dim int, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if dim < 1 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dim: dim, logger: logger}, nil
}

// InsertMany bulk-inserts chunks without embeddings. Inserted chunks are
// invisible to vector search until a backfill run embeds them.
// The insert is a single batch on one connection; on error none of the
// statements past the failure are applied.
func (s *Store) InsertMany(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(
			`INSERT INTO curriculum_chunks
			 (id, grade, subject, term, unit_number, unit_name, lesson_number, lesson_name, idea_title, content)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, c.Grade, c.Subject, c.Term,
			c.UnitNumber, c.UnitName, c.LessonNumber, c.LessonName, c.IdeaTitle,
			c.Content,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Debug("closing insert batch", "error", err)
		}
	}()

	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("inserting chunk %d of %d: %w", i+1, len(chunks), err)
		}
	}

	s.logger.Debug("inserted chunks", "count", len(chunks))
	return len(chunks), nil
}

// DeleteScope removes every chunk matching the exact {grade, subject, term}
// triple. Used by the ingestion replace path; never cumulative.
func (s *Store) DeleteScope(ctx context.Context, grade, subject, term string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM curriculum_chunks WHERE grade = $1 AND subject = $2 AND term = $3`,
		grade, subject, term,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting scope %s/%s/%s: %w", grade, subject, term, err)
	}
	return tag.RowsAffected(), nil
}

// MissingEmbeddings returns up to limit chunks that have text but no
// embedding, with id > after, ordered by id. Passing uuid.Nil starts from
// the beginning; passing the last id of the previous page continues the
// scan with bounded memory.
func (s *Store) MissingEmbeddings(ctx context.Context, after uuid.UUID, limit int) ([]Chunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+chunkCols+`
		 FROM curriculum_chunks
		 WHERE embedding IS NULL AND content <> '' AND id > $1
		 ORDER BY id
		 LIMIT $2`,
		after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// CountMissingEmbeddings counts chunks pending backfill, using the same
// predicate as MissingEmbeddings.
func (s *Store) CountMissingEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM curriculum_chunks WHERE embedding IS NULL AND content <> ''`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pending chunks: %w", err)
	}
	return count, nil
}

// UpdateEmbedding sets the embedding for one chunk. Idempotent: writing the
// same vector twice is a no-op change.
func (s *Store) UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dim)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE curriculum_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(vec), id,
	)
	if err != nil {
		return fmt.Errorf("updating embedding for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %s not found", id)
	}
	return nil
}

// VectorSearch ranks chunks by cosine similarity to vec, pre-filtered by
// metadata. numCandidates bounds the HNSW candidate pool (ef_search) and
// limit caps the returned rows; raising limit without raising numCandidates
// cannot surface more than the candidate pool.
//
// Results are ordered by descending score. An empty result is a valid
// outcome, not an error.
func (s *Store) VectorSearch(ctx context.Context, vec []float32, f Filter, numCandidates, limit int) ([]Scored, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dim)
	}
	if numCandidates < limit {
		numCandidates = limit
	}

	where, args := f.whereClause(pgvector.NewVector(vec))

	// ef_search is transaction-local, so the whole search runs in one tx.
	// The value is a validated int, not user input.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning search transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("search transaction rollback", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", numCandidates)); err != nil {
		return nil, fmt.Errorf("setting candidate pool size: %w", err)
	}

	// The halfvec cast must mirror the index expression or the planner
	// falls back to a sequential scan.
	expr := fmt.Sprintf("embedding::halfvec(%d) <=> $1::vector::halfvec(%d)", s.dim, s.dim)
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT `+chunkCols+`, 1 - (%s) AS score
		 FROM curriculum_chunks
		 WHERE %s
		 ORDER BY %s
		 LIMIT $%d`,
		expr, where, expr, len(args),
	)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results, err := scanScored(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing search transaction: %w", err)
	}

	return results, nil
}

// whereClause renders the metadata pre-filter. $1 is reserved for the query
// vector; filter arguments follow it.
func (f Filter) whereClause(vec pgvector.Vector) (string, []any) {
	conds := []string{"embedding IS NOT NULL"}
	args := []any{vec}

	switch len(f.Grades) {
	case 0:
		// no grade restriction
	case 1:
		args = append(args, f.Grades[0])
		conds = append(conds, fmt.Sprintf("grade = $%d", len(args)))
	default:
		args = append(args, f.Grades)
		conds = append(conds, fmt.Sprintf("grade = ANY($%d)", len(args)))
	}

	if f.Subject != "" {
		args = append(args, f.Subject)
		conds = append(conds, fmt.Sprintf("subject = $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

// EnsureIndex creates the ANN index if absent. With replace it drops and
// rebuilds the index first, which is how a corrupted or mis-parameterized
// index is recovered without touching the data.
func (s *Store) EnsureIndex(ctx context.Context, replace bool) error {
	if replace {
		if _, err := s.pool.Exec(ctx, `DROP INDEX IF EXISTS idx_curriculum_chunks_embedding`); err != nil {
			return fmt.Errorf("dropping ANN index: %w", err)
		}
	}

	stmt := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_curriculum_chunks_embedding
		 ON curriculum_chunks
		 USING hnsw ((embedding::halfvec(%d)) halfvec_cosine_ops)`,
		s.dim,
	)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("creating ANN index: %w", err)
	}

	s.logger.Debug("ANN index ensured", "replace", replace)
	return nil
}

// Structure summarizes the stored corpus per {grade, subject, term} scope,
// including how many chunks still await a backfill run.
func (s *Store) Structure(ctx context.Context) ([]ScopeSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT grade, subject, term,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE embedding IS NULL AND content <> '')
		 FROM curriculum_chunks
		 GROUP BY grade, subject, term
		 ORDER BY grade, subject, term`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying corpus structure: %w", err)
	}
	defer rows.Close()

	var scopes []ScopeSummary
	for rows.Next() {
		var sc ScopeSummary
		if err := rows.Scan(&sc.Grade, &sc.Subject, &sc.Term, &sc.Total, &sc.Pending); err != nil {
			return nil, fmt.Errorf("scanning scope summary: %w", err)
		}
		scopes = append(scopes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scope summaries: %w", err)
	}
	return scopes, nil
}

// Reset truncates the collection. Destructive; used by the structure
// rebuild path and integration tests.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE curriculum_chunks`); err != nil {
		return fmt.Errorf("truncating curriculum_chunks: %w", err)
	}
	return nil
}

func scanChunks(rows pgx.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(
			&c.ID, &c.Grade, &c.Subject, &c.Term,
			&c.UnitNumber, &c.UnitName, &c.LessonNumber, &c.LessonName, &c.IdeaTitle,
			&c.Content,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func scanScored(rows pgx.Rows) ([]Scored, error) {
	defer rows.Close()

	var results []Scored
	for rows.Next() {
		var r Scored
		if err := rows.Scan(
			&r.ID, &r.Grade, &r.Subject, &r.Term,
			&r.UnitNumber, &r.UnitName, &r.LessonNumber, &r.LessonName, &r.IdeaTitle,
			&r.Content, &r.Score,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}
