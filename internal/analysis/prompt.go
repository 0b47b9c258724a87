package analysis

const SystemPrompt = `You are a strict JSON generator for an education assistant.
Return ONLY one valid JSON object. No conversational text. No markdown backticks.
The JSON must strictly follow this structure:
{
  "summary": "Full summary of the content",
  "key_points": ["point 1", "point 2", "point 3"],
  "quiz": [
    {
      "question": "Question text?",
      "options": ["A", "B", "C", "D"],
      "answer": "The exact text of the correct option"
    }
  ]
}`

// BuildUserPrompt wraps a chunk in the analysis instruction.
func BuildUserPrompt(chunk string) string {
	return "Analyze this content: \n\n" + chunk
}
