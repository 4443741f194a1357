package platform

import (
	"github.com/sells-group/brandtrack-cli/internal/browser"
)

// chatGPT drives chatgpt.com without a login. Turns render as <article>
// elements: odd articles are user turns, even articles are answers.
type chatGPT struct {
	base
}

func newChatGPT(page browser.Page) *chatGPT {
	return &chatGPT{base: base{
		page:       page,
		name:       "chatgpt",
		baseURL:    "https://chatgpt.com",
		inputSel:   "#prompt-textarea",
		messageSel: "article",
		answerSel:  `article [data-message-author-role="assistant"]`,
		dismissSels: []string{
			`button[data-testid="cookie-banner-accept"]`,
			`button[data-testid="dismiss-welcome"]`,
			// "Stay logged out" login nag.
			`a[href="#"][class*="underline"]`,
		},
	}}
}
