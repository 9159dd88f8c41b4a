package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocument_ContentVersion(t *testing.T) {
	doc := &Document{Content: "alpha"}
	v1 := doc.ContentVersion()

	doc.Content = "beta"
	if doc.ContentVersion() == v1 {
		t.Errorf("ContentVersion() did not change with content")
	}
}

func TestBatchResults(t *testing.T) {
	id := uuid.New()

	ok := SuccessResult(id, 3)
	if !ok.Succeeded() || ok.ChunkCount != 3 || ok.Error != "" {
		t.Errorf("SuccessResult() = %+v", ok)
	}

	failed := FailedResult(id, errors.New("boom"))
	if failed.Succeeded() || failed.Error != "boom" || failed.ChunkCount != 0 {
		t.Errorf("FailedResult() = %+v", failed)
	}

	if got := FailedResult(id, nil).Error; got == "" {
		t.Errorf("FailedResult(nil) should still carry a message")
	}
}
