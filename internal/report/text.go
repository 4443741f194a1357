package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/brandtrack-cli/internal/model"
)

// FormatText renders a completed run as a plain-text report for the terminal.
func FormatText(run *model.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brand visibility report\n")
	fmt.Fprintf(&b, "Run:      %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Category: %s\n", run.Job.Category)
	fmt.Fprintf(&b, "Brand:    %s vs %s\n", run.Job.MyBrand, strings.Join(run.Job.Competitors, ", "))
	fmt.Fprintf(&b, "Platforms: %s\n", strings.Join(run.Job.Platforms, ", "))

	if run.Error != "" {
		fmt.Fprintf(&b, "\nRun error: %s\n", run.Error)
	}
	if run.Result == nil {
		b.WriteString("\nNo results recorded for this run.\n")
		return b.String()
	}

	s := run.Result.Summary
	fmt.Fprintf(&b, "\nPrompts: %d total, %d answered, %d failed", s.TotalPrompts, s.AnsweredPrompts, s.FailedPrompts)
	if s.DegradedPrompts > 0 {
		fmt.Fprintf(&b, " (%d partial)", s.DegradedPrompts)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Extraction tokens: %d in / %d out, est. $%.4f\n",
		s.ExtractionUsage.InputTokens, s.ExtractionUsage.OutputTokens, s.EstimatedCostUSD)

	// Zero usable answers is its own condition: nothing was analyzable,
	// which is not the same as analyzing everything and finding no mentions.
	if s.AnsweredPrompts == 0 {
		b.WriteString("\nNo data to analyze: no platform returned a usable answer.\n")
		return b.String()
	}

	b.WriteString("\nLeaderboard\n")
	for _, e := range run.Result.Leaderboard.Overall {
		marker := " "
		if e.Brand == run.Job.MyBrand {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %d. %-20s visibility %5.1f  citation share %5.1f  mentions %d  won %d\n",
			marker, e.Rank, e.Brand, e.VisibilityScore, e.CitationShare, e.TotalMentions, e.PromptsWon)
	}

	for _, m := range run.Result.BrandMetrics {
		if m.Brand != run.Job.MyBrand {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", m.Brand)
		fmt.Fprintf(&b, "  mentioned in %d/%d prompts, won %d, lost %d, tied %d\n",
			m.PromptsWithMention, m.TotalPromptsAnalyzed, m.PromptsWon, m.PromptsLost, m.PromptsTied)
		platforms := make([]string, 0, len(m.PlatformBreakdown))
		for platform := range m.PlatformBreakdown {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)
		for _, platform := range platforms {
			stats := m.PlatformBreakdown[platform]
			fmt.Fprintf(&b, "  %-12s visibility %5.1f  citation share %5.1f  (%d/%d prompts)\n",
				platform, stats.VisibilityScore, stats.CitationShare, stats.PromptsWithMention, stats.TotalPrompts)
		}
		if len(m.TopContexts) > 0 {
			b.WriteString("  how it shows up:\n")
			for _, ctx := range m.TopContexts {
				fmt.Fprintf(&b, "    - %s\n", ctx)
			}
		}
	}

	return b.String()
}
