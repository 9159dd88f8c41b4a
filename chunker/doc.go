// Package chunker splits document text into bounded, overlapping segments
// suitable for embedding.
//
// Chunks prefer natural boundaries (paragraphs, lines, sentences, words) and
// fall back to a fixed character window. Chunking is deterministic: the same
// input always yields the same sequence.
//
//	c, err := chunker.New(chunker.WithMaxSize(800), chunker.WithOverlap(100))
//	if err != nil {
//	    return err
//	}
//	for _, text := range c.Chunk(doc.Content) {
//	    ...
//	}
package chunker
