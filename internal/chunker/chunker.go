package chunker

// DefaultSize is the chunk size, in characters, used when the caller passes
// a non-positive size.
const DefaultSize = 6000

// Chunk is one contiguous slice of the normalized document.
type Chunk struct {
	Index  int    // Position in the document, starting at 0.
	Offset int    // Character offset of the first character.
	Text   string // At most the requested size in characters.
}

// Split cuts text into consecutive chunks of at most maxSize characters.
// Chunks never overlap and concatenating their Text reproduces the input.
// Boundaries fall on character counts only, so a word or sentence may be cut.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	if text == "" {
		return []Chunk{}
	}

	chunks := make([]Chunk, 0, len(text)/maxSize+1)
	start, offset, count := 0, 0, 0

	for i := range text {
		if count == maxSize {
			chunks = append(chunks, Chunk{Index: len(chunks), Offset: offset, Text: text[start:i]})
			start = i
			offset += count
			count = 0
		}
		count++
	}
	chunks = append(chunks, Chunk{Index: len(chunks), Offset: offset, Text: text[start:]})

	return chunks
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
