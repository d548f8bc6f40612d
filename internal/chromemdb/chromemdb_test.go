package chromemdb

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/models"
)

// fakeEmbedder hashes words into a small normalised bag-of-words vector.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 64)
	vec[0] = 1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[1+h.Sum32()%63]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	for i := range vec {
		vec[i] /= float32(math.Sqrt(norm))
	}
	return vec, nil
}

func (f fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.EmbedQuery(ctx, t)
	}
	return out, nil
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{ID: "doc-1", Source: "doc.txt", Index: 1, Content: "golang gopher concurrency channels"},
		{ID: "doc-2", Source: "doc.txt", Index: 2, Content: "banana fruit smoothie recipe"},
		{ID: "doc-3", Source: "doc.txt", Index: 3, Content: "ocean waves surfing board"},
		{ID: "doc-4", Source: "doc.txt", Index: 4, Content: "mountain hiking trail boots"},
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	m, err := NewVectorDBManager("", "session-test", false, fakeEmbedder{})
	require.NoError(t, err)

	require.NoError(t, m.AddChunks(ctx, testChunks()))
	assert.Equal(t, 4, m.Count())

	results, err := m.Search(ctx, "gopher concurrency", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc-1", results[0].ID)
	assert.Equal(t, "doc.txt", results[0].Source)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, "golang gopher concurrency channels", results[0].Content)
}

func TestSearchClampsTopK(t *testing.T) {
	ctx := context.Background()
	m, err := NewVectorDBManager("", "session-clamp", false, fakeEmbedder{})
	require.NoError(t, err)

	results, err := m.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, m.AddChunks(ctx, testChunks()[:2]))
	results, err = m.Search(ctx, "banana", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "doc-2", results[0].ID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	m, err := NewVectorDBManager("", "session-reset", false, fakeEmbedder{})
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx))
	require.NoError(t, m.AddChunks(ctx, testChunks()))
	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, 0, m.Count())

	results, err := m.Search(ctx, "gopher", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	// the collection is recreated on the next insert
	require.NoError(t, m.AddChunks(ctx, testChunks()[2:]))
	assert.Equal(t, 2, m.Count())
}

func TestPersistentDB(t *testing.T) {
	ctx := context.Background()
	m, err := NewVectorDBManager(t.TempDir(), "session-disk", false, fakeEmbedder{})
	require.NoError(t, err)

	require.NoError(t, m.AddChunks(ctx, testChunks()))
	results, err := m.Search(ctx, "surfing waves", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-3", results[0].ID)
	require.NoError(t, m.Reset(ctx))
}
