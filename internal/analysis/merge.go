package analysis

import "strings"

// Merge combines chunk results in order. Summaries are joined verbatim with a
// single space, key points are de-duplicated keeping the first occurrence, and quiz
// questions are concatenated as-is.
func Merge(results []ChunkResult) Merged {
	merged := Merged{
		KeyPoints: []string{},
		Quiz:      []QuizQuestion{},
	}

	summaries := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		summaries = append(summaries, r.Summary)
		for _, kp := range r.KeyPoints {
			if seen[kp] {
				continue
			}
			seen[kp] = true
			merged.KeyPoints = append(merged.KeyPoints, kp)
		}
		merged.Quiz = append(merged.Quiz, r.Quiz...)
	}
	merged.Summary = strings.Join(summaries, " ")

	return merged
}
