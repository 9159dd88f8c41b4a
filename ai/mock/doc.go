// Package mock provides a test double for ai.Embedder.
//
// The mock lets tests run without an embedding service and gives them
// deterministic vectors plus hooks for injecting failures.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder().WithDimensions(4)
//	vec, err := embedder.EmbedText(ctx, "test")
//
//	// Fail any call that includes a poisoned text
//	embedder.WithFailOn(func(text string) error {
//	    if strings.Contains(text, "poison") {
//	        return errors.New("model rejected input")
//	    }
//	    return nil
//	})
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// Vectors are derived from an FNV hash of the text and normalized to unit
// length, so identical text always embeds identically. Empty text fails
// with a permanent *core.EmbeddingError, matching the real embedders.
package mock
