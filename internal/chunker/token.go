package chunker

import "unicode/utf8"

// CharsPerToken is the average number of characters per model token for
// normalized English text.
const CharsPerToken = 4

// EstimateTokens gives a rough token count for a chunk of normalized text,
// rounded up. Used for logging only.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}
