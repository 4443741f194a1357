// Package promptgen produces category-seeded prompts with the completion
// service, for jobs that ask for generated prompts alongside their own.
package promptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/brandtrack-cli/internal/extract"
)

// maxTokens bounds the generation response. A prompt list is short.
const maxTokens = 2048

const systemPrompt = `You are an expert at generating search queries that people use when researching products and services.

Your task is to generate diverse, realistic prompts that users might ask AI assistants when researching a specific category of products/services.

Generate prompts that cover different angles:
1. Recommendation queries ("What's the best...")
2. Comparison queries ("Compare X vs Y...")
3. Feature queries ("Which has the best...")
4. Pricing queries ("Most affordable...")
5. Use case queries ("Best for small teams...")
6. Alternative queries ("Alternatives to...")
7. Review queries ("What do users say about...")

IMPORTANT:
- Generate exactly the number of prompts requested
- Make prompts specific to the category provided
- Vary the phrasing and angles
- Return ONLY a JSON array of strings, no other text`

// Generator asks the completion service for prompts in a category.
type Generator struct {
	completer extract.Completer
}

// New builds a Generator over the given completion service.
func New(completer extract.Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate returns exactly count prompts for the category. A service or parse
// failure degrades to template prompts rather than failing the run; a short
// response is padded with templates and a long one truncated.
func (g *Generator) Generate(ctx context.Context, category string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	user := fmt.Sprintf(`Generate exactly %d diverse search prompts for the category: %q

These prompts should represent realistic questions users ask AI assistants when researching products in this category.

Return ONLY a JSON array of %d strings.`, count, category, count)

	completion, err := g.completer.Complete(ctx, systemPrompt, user, maxTokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		zap.L().Warn("promptgen: generation failed, using templates",
			zap.String("category", category),
			zap.Error(err))
		return templatePrompts(category, count), nil
	}

	prompts := parsePrompts(completion.Text)
	if len(prompts) == 0 {
		zap.L().Warn("promptgen: unparseable response, using templates",
			zap.String("category", category))
		return templatePrompts(category, count), nil
	}
	if len(prompts) < count {
		prompts = append(prompts, templatePrompts(category, count-len(prompts))...)
	}
	return prompts[:count], nil
}

// parsePrompts reads a JSON string array out of the response, tolerating
// prose or code fences around it. Returns nil when no array parses.
func parsePrompts(text string) []string {
	text = strings.TrimSpace(text)

	var prompts []string
	if err := json.Unmarshal([]byte(text), &prompts); err == nil {
		return normalize(prompts)
	}
	if arr := balancedArray(text); arr != "" {
		if err := json.Unmarshal([]byte(arr), &prompts); err == nil {
			return normalize(prompts)
		}
	}
	return nil
}

// balancedArray returns the first balanced top-level [...] in text, bracket
// counting while skipping string literals. Returns "" when no balanced array
// exists, including truncated output.
func balancedArray(text string) string {
	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func normalize(prompts []string) []string {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// templatePrompts fills the requested count without the service, cycling a
// fixed set of question shapes seeded with the category.
func templatePrompts(category string, count int) []string {
	templates := []string{
		fmt.Sprintf("What are the best %s available today?", category),
		fmt.Sprintf("Which %s offers the most features for the price?", category),
		fmt.Sprintf("Compare the top rated %s options", category),
		fmt.Sprintf("What is the most affordable %s?", category),
		fmt.Sprintf("Best %s for small businesses", category),
		fmt.Sprintf("Best %s for startups", category),
		fmt.Sprintf("Best %s for enterprise companies", category),
		fmt.Sprintf("Which %s has the best customer support?", category),
		fmt.Sprintf("What are alternatives to popular %s?", category),
		fmt.Sprintf("What do users say about %s in 2025?", category),
		fmt.Sprintf("Which %s is easiest to use?", category),
		fmt.Sprintf("Best %s with free trial", category),
		fmt.Sprintf("Top rated %s according to reviews", category),
		fmt.Sprintf("Which %s integrates with other tools?", category),
		fmt.Sprintf("Most recommended %s by experts", category),
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, templates[i%len(templates)])
	}
	return out
}
