package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestValidateDocument(t *testing.T) {
	project := uuid.New()

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{ProjectID: project, Name: "faq.txt", Content: "hello", Status: StatusPending},
			wantErr: nil,
		},
		{
			name:    "empty content is valid",
			doc:     &Document{ProjectID: project, Name: "empty.txt", Status: StatusPending},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "missing project",
			doc:     &Document{Name: "faq.txt", Status: StatusPending},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "blank name",
			doc:     &Document{ProjectID: project, Name: "  ", Status: StatusPending},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "unknown status",
			doc:     &Document{ProjectID: project, Name: "faq.txt", Status: "archived"},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("hello"); err != nil {
		t.Errorf("ValidateText(hello) unexpected error: %v", err)
	}
	for _, s := range []string{"", " ", "\n\t "} {
		if err := ValidateText(s); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("ValidateText(%q) error = %v, want ErrEmptyInput", s, err)
		}
	}
}

func TestValidateLimit(t *testing.T) {
	if err := ValidateLimit(1); err != nil {
		t.Errorf("ValidateLimit(1) unexpected error: %v", err)
	}
	for _, n := range []int{0, -3} {
		if err := ValidateLimit(n); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("ValidateLimit(%d) error = %v, want ErrInvalidLimit", n, err)
		}
	}
}
