package platform

import (
	"github.com/sells-group/brandtrack-cli/internal/browser"
)

// perplexity drives perplexity.ai. Answers render as .prose blocks; the
// query count doubles as the message count because each query renders one
// answer container immediately.
type perplexity struct {
	base
}

func newPerplexity(page browser.Page) *perplexity {
	return &perplexity{base: base{
		page:       page,
		name:       "perplexity",
		baseURL:    "https://www.perplexity.ai",
		inputSel:   `textarea[placeholder*="Ask"]`,
		messageSel: `div[class*="pb-md"] .prose`,
		answerSel:  `div[class*="pb-md"] .prose`,
		dismissSels: []string{
			`button[aria-label="Close"]`,
			`button[data-testid="login-modal-close"]`,
		},
	}}
}
