// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ProjectID must be set
//   - Name must not be blank
//   - Status must be a known status
//
// NOT validated:
//   - Content (empty documents are legal and ingest to zero chunks)
//   - ID (assigned by storage when zero)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ProjectID == uuid.Nil {
		return fmt.Errorf("%w: project id is required", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDocument)
	}

	if !doc.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidStatus, doc.Status)
	}

	return nil
}

// ValidateText returns ErrEmptyInput for empty or whitespace-only text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	return nil
}

// ValidateLimit returns ErrInvalidLimit unless limit is positive.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return nil
}
