package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/ai/mock"
	"github.com/poiesic/knowledge/config"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
	"github.com/poiesic/knowledge/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Dimensions = mock.DefaultDimensions
	cfg.Badger.InMemory = true
	cfg.Chunker.MaxSize = 80
	cfg.Chunker.Overlap = 10
	require.NoError(t, cfg.Finalize())
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("memory store with injected embedder", func(t *testing.T) {
		db, err := Open(context.Background(), testConfig(t), WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		defer db.Close()

		assert.NotNil(t, db.Store())
		assert.NotNil(t, db.Pipeline())
		assert.NotNil(t, db.Searcher())
		assert.NotNil(t, db.Embedder())
		assert.Equal(t, mock.DefaultDimensions, db.Store().Dimensions())
	})

	t.Run("embedder dimension mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder().WithDimensions(4)
		db, err := Open(context.Background(), testConfig(t), WithEmbedder(embedder))
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
		assert.Nil(t, db)
	})

	t.Run("configured embedding client with cache", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedding.CacheSize = 16

		db, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		defer db.Close()
		assert.NotNil(t, db.cache)
		assert.Same(t, db.cache, db.Embedder())
	})

	t.Run("injected store", func(t *testing.T) {
		store, err := badger.NewMemoryStore(mock.DefaultDimensions)
		require.NoError(t, err)

		db, err := Open(context.Background(), testConfig(t),
			WithStore(store), WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		assert.Same(t, store, db.Store())
		assert.NoError(t, db.Close())
	})
}

func TestOpenStore(t *testing.T) {
	t.Run("badger on disk", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Badger.InMemory = false
		cfg.Badger.Path = filepath.Join(t.TempDir(), "data")

		store, err := OpenStore(context.Background(), cfg, nil)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})

	t.Run("badger path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Badger.InMemory = false
		cfg.Badger.Path = filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(cfg.Badger.Path, []byte("test"), 0644))

		store, err := OpenStore(context.Background(), cfg, nil)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.Backend = "sqlite"

		_, err := OpenStore(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "unknown store backend")
	})
}

func TestDatabase_IngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, testConfig(t), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer db.Close()

	project := uuid.New()
	doc, err := db.Store().CreateDocument(ctx, &core.Document{
		ProjectID: project,
		Name:      "faq.md",
		Content:   "Refunds are issued within five business days.\n\nShipping is free over fifty dollars.",
	})
	require.NoError(t, err)

	results := db.Pipeline().ProcessDocumentBatch(ctx, []uuid.UUID{doc.ID})
	require.Len(t, results, 1)
	require.True(t, results[0].Succeeded(), results[0].Error)
	assert.Positive(t, results[0].ChunkCount)

	stored, err := db.Store().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusComplete, stored.Status)

	chunks, err := db.Searcher().Retrieve(ctx, project, "Refunds are issued within five business days.", 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, doc.ID, chunks[0].DocumentID)

	other, err := db.Searcher().Retrieve(ctx, uuid.New(), "refunds", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
