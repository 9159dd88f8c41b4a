package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "pending document",
			doc: &core.Document{
				ID:         uuid.New(),
				ProjectID:  uuid.New(),
				Name:       "handbook.md",
				SourceType: core.SourceTypeMarkdown,
				Content:    "# Handbook\n\nWelcome aboard.",
				Status:     core.StatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		{
			name: "failed document with reason",
			doc: &core.Document{
				ID:           uuid.New(),
				ProjectID:    uuid.New(),
				Name:         "report.pdf",
				SourceType:   core.SourceTypePDF,
				Content:      "extracted text",
				Status:       core.StatusFailed,
				StatusReason: "embedding unavailable after 4 attempt(s)",
				CreatedAt:    now,
				UpdatedAt:    now.Add(time.Minute),
			},
		},
		{
			name: "empty content",
			doc: &core.Document{
				ID:        uuid.New(),
				ProjectID: uuid.New(),
				Name:      "empty.txt",
				Status:    core.StatusComplete,
			},
		},
		{
			name: "unicode content",
			doc: &core.Document{
				ID:        uuid.New(),
				ProjectID: uuid.New(),
				Name:      "日本語.txt",
				Content:   "こんにちは世界。🌍",
				Status:    core.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalDocument(tt.doc)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.doc.ID, decoded.ID)
			assert.Equal(t, tt.doc.ProjectID, decoded.ProjectID)
			assert.Equal(t, tt.doc.Name, decoded.Name)
			assert.Equal(t, tt.doc.SourceType, decoded.SourceType)
			assert.Equal(t, tt.doc.Content, decoded.Content)
			assert.Equal(t, tt.doc.Status, decoded.Status)
			assert.Equal(t, tt.doc.StatusReason, decoded.StatusReason)
			assert.True(t, tt.doc.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.doc.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Index:      7,
		Text:       "Billing happens monthly.",
		Vector:     []float32{0.1, -0.2, 0.3, 1e-7},
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk.ID, decoded.ID)
	assert.Equal(t, chunk.DocumentID, decoded.DocumentID)
	assert.Equal(t, chunk.Index, decoded.Index)
	assert.Equal(t, chunk.Text, decoded.Text)
	assert.Equal(t, chunk.Vector, decoded.Vector)
	assert.True(t, chunk.CreatedAt.Equal(decoded.CreatedAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	doc := MarshalDocument(&core.Document{ID: uuid.New(), Name: "x", Content: "some content", Status: core.StatusPending})
	chunk := MarshalChunk(&core.Chunk{ID: uuid.New(), Text: "t", Vector: []float32{1, 2}})

	tests := []struct {
		name      string
		unmarshal func() error
	}{
		{"empty document", func() error { _, err := UnmarshalDocument(nil); return err }},
		{"truncated document", func() error { _, err := UnmarshalDocument(doc[:len(doc)-3]); return err }},
		{"trailing document bytes", func() error { _, err := UnmarshalDocument(append(doc, 0)); return err }},
		{"wrong document version", func() error {
			bad := append([]byte{99}, doc[1:]...)
			_, err := UnmarshalDocument(bad)
			return err
		}},
		{"empty chunk", func() error { _, err := UnmarshalChunk([]byte{}); return err }},
		{"truncated chunk", func() error { _, err := UnmarshalChunk(chunk[:len(chunk)-5]); return err }},
		{"trailing chunk bytes", func() error { _, err := UnmarshalChunk(append(chunk, 0)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.unmarshal(), ErrSerializationFailed)
		})
	}
}

func TestUnmarshalDocument_CorruptStatus(t *testing.T) {
	data := MarshalDocument(&core.Document{ID: uuid.New(), Name: "x", Status: "halfway"})

	_, err := UnmarshalDocument(data)
	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestMarshalUnmarshalDocument_ZeroTimes(t *testing.T) {
	doc := &core.Document{ID: uuid.New(), ProjectID: uuid.New(), Name: "x", Status: core.StatusPending}

	decoded, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.IsZero())
	assert.True(t, decoded.UpdatedAt.IsZero())
}
