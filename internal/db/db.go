package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	SessionID     string          `bun:"session_id,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Source        string          `bun:"source"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the DSN with bun's pgdriver or, when cfg.Driver is "pq",
// with lib/pq.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB, vectorSize int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		source TEXT,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, vectorSize))
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	_, err = db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS documents_session_idx ON documents (session_id)")
	return err
}

// Store is a retrieval index over the documents table, scoped to one session.
type Store struct {
	db        *bun.DB
	embedder  embeddings.Embedder
	sessionID string
}

func NewStore(db *bun.DB, embedder embeddings.Embedder, sessionID string) *Store {
	return &Store{db: db, embedder: embedder, sessionID: sessionID}
}

func (s *Store) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]Document, len(chunks))
	for i, c := range chunks {
		docs[i] = Document{
			SessionID:  s.sessionID,
			ChunkIndex: c.Index,
			Source:     c.Source,
			Content:    c.Content,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}
	if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	log.Debug().Str("session", s.sessionID).Int("chunks", len(docs)).Msg("Stored chunks")
	return nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var docs []Document
	err = s.db.NewSelect().
		Model(&docs).
		Column("id", "chunk_index", "source", "content").
		Where("session_id = ?", s.sessionID).
		OrderExpr("embedding <-> ?", pgvector.NewVector(queryEmbedding)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	chunks := make([]models.Chunk, len(docs))
	for i, d := range docs {
		chunks[i] = models.Chunk{
			ID:      fmt.Sprintf("%s-%d", d.Source, d.ChunkIndex),
			Source:  d.Source,
			Index:   d.ChunkIndex,
			Content: d.Content,
		}
	}
	return chunks, nil
}

// Reset deletes the session's rows.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*Document)(nil)).
		Where("session_id = ?", s.sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear session documents: %w", err)
	}
	return nil
}
