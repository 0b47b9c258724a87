package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var errNoObject = errors.New("no JSON object in response")

// ExtractObject returns the substring from the first '{' to the last '}' of
// raw. Models sometimes wrap the object in prose or code fences.
func ExtractObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", errNoObject
	}
	return raw[start : end+1], nil
}

// ParseChunkResult decodes a model response into a ChunkResult.
func ParseChunkResult(raw string) (*ChunkResult, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var res ChunkResult
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, fmt.Errorf("decode analysis json: %w (raw: %s)", err, truncate(obj, 200))
	}
	return &res, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
