package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/brandtrack-cli/internal/model"
)

// maxAnswerChars bounds each answer's contribution to the batch request so a
// single rambling answer cannot blow the context window.
const maxAnswerChars = 3000

// systemPrompt instructs the model to return one entry per promptId. The
// batch is matched back by identifier, so silent omission is called out
// explicitly.
const systemPrompt = `You are an expert at analyzing text for brand mentions and citations.

You will be given several AI-generated answers, each tagged with a promptId, plus a list of brands to look for.

For every answer, analyze the text and:
1. Identify mentions of the listed brands
2. Extract any URLs/citations mentioned

For each brand mentioned, provide:
- brand: The exact brand name (as provided in the list)
- count: How many times it's mentioned (count all variations like "Nike", "Nike's", "by Nike")
- rank: The position (1 = first mentioned, 2 = second, etc.)
- context: A relevant context sentence showing how the brand is described
- isRecommended: Whether the brand is explicitly recommended (true/false)

Return a single JSON object with a "results" array containing exactly one entry per promptId:
{
  "results": [
    {
      "promptId": "chatgpt_000",
      "mentions": [
        {"brand": "Nike", "count": 3, "rank": 1, "context": "Nike leads the market with innovative designs", "isRecommended": true}
      ],
      "citations": ["https://example.com/article"]
    }
  ]
}

Never omit a promptId from the results array. If an answer mentions no brands, return it with an empty mentions array. If it contains no URLs, return an empty citations array. Return only the JSON object, no surrounding commentary.`

// buildUserPrompt enumerates every answer with its promptId inlined so the
// response can be matched back by identifier rather than position.
func buildUserPrompt(answers []model.RawAnswer, brands model.TrackedBrands) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these answers for mentions of these brands: %s\n\n", strings.Join(brands.All(), ", "))
	fmt.Fprintf(&b, "There are %d answers. Return one results entry per promptId.\n", len(answers))

	for _, a := range answers {
		text := a.Text
		if len(text) > maxAnswerChars {
			text = text[:maxAnswerChars]
		}
		fmt.Fprintf(&b, "\n--- promptId: %s ---\nQuestion: %s\nAnswer:\n\"\"\"\n%s\n\"\"\"\n", a.PromptID, a.PromptText, text)
	}

	b.WriteString("\nReturn a JSON object with a \"results\" array, one entry per promptId.")
	return b.String()
}
