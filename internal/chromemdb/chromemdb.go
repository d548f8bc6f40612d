package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-chat/internal/models"
)

const (
	metaSource = "source"
	metaIndex  = "chunk_index"
)

// VectorDBManager keeps one chromem collection for a chat session. The
// collection is created on first insert and dropped by Reset.
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	embed          chromem.EmbeddingFunc
}

// NewVectorDBManager opens an in-memory database when dbPath is empty and a
// persistent one rooted at dbPath otherwise.
func NewVectorDBManager(dbPath, collectionName string, compress bool, embedder embeddings.Embedder) (*VectorDBManager, error) {
	var db *chromem.DB
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		embed:          EmbeddingFunc(embedder),
	}, nil
}

// EmbeddingFunc adapts a langchaingo embedder to chromem.
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func (m *VectorDBManager) getOrCreateCollection() (*chromem.Collection, error) {
	if m.collection != nil {
		return m.collection, nil
	}
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// AddChunks embeds and stores chunks.
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	c, err := m.getOrCreateCollection()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      chunk.ID,
			Content: chunk.Content,
			Metadata: map[string]string{
				metaSource: chunk.Source,
				metaIndex:  strconv.Itoa(chunk.Index),
			},
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Str("collection", m.collectionName).Int("chunks", len(docs)).Msg("Added chunks to vector database")
	return nil
}

// Search returns up to k chunks ordered by similarity to query.
func (m *VectorDBManager) Search(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if m.collection == nil || k <= 0 {
		return nil, nil
	}
	n := min(k, m.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := m.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	chunks := make([]models.Chunk, len(results))
	for i, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[metaIndex])
		chunks[i] = models.Chunk{
			ID:      r.ID,
			Source:  r.Metadata[metaSource],
			Index:   idx,
			Content: r.Content,
		}
	}
	return chunks, nil
}

// Count reports the number of stored chunks.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// Reset drops the session collection.
func (m *VectorDBManager) Reset(ctx context.Context) error {
	if m.collection == nil {
		return nil
	}
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	log.Debug().Str("collection", m.collectionName).Msg("Dropped collection")
	return nil
}
