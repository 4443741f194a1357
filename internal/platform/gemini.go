package platform

import (
	"github.com/sells-group/brandtrack-cli/internal/browser"
)

// gemini drives gemini.google.com. The input surface is a rich-text editor,
// not a textarea; answers render inside <message-content> custom elements.
type gemini struct {
	base
}

func newGemini(page browser.Page) *gemini {
	return &gemini{base: base{
		page:       page,
		name:       "gemini",
		baseURL:    "https://gemini.google.com",
		inputSel:   "rich-textarea .ql-editor",
		messageSel: "message-content",
		answerSel:  "message-content .markdown",
		dismissSels: []string{
			`button[aria-label="Close"]`,
			// Cookie consent.
			`button[jsname="higCR"]`,
		},
	}}
}
