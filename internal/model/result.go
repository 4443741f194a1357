package model

// PromptResult is the merged per-(prompt, platform) record: the raw answer,
// its extraction output, and the derived competitive fields. Built once by
// the analysis phase and immutable afterwards.
type PromptResult struct {
	PromptID   string    `json:"prompt_id"`
	Platform   string    `json:"platform"`
	PromptText string    `json:"prompt_text"`
	Response   string    `json:"response"`
	Success    bool      `json:"success"`
	Degraded   bool      `json:"degraded,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`

	Mentions  []BrandMention `json:"mentions"`
	Citations []string       `json:"citations"`

	// PromptWinner is the brand with the highest mention count, ties broken
	// by lower rank; empty when no brand is mentioned or the tie-break also
	// ties. PromptLoser requires at least two mentioned brands.
	PromptWinner string `json:"prompt_winner,omitempty"`
	PromptLoser  string `json:"prompt_loser,omitempty"`

	MyBrandMentioned     bool     `json:"my_brand_mentioned"`
	MyBrandRank          int      `json:"my_brand_rank,omitempty"`
	CompetitorsMentioned []string `json:"competitors_mentioned"`
	CompetitorsMissed    []string `json:"competitors_missed"`
}
