// Package metrics reduces extracted mentions into deterministic per-brand
// scores and rankings. Everything here is pure: same inputs, same outputs,
// no I/O.
package metrics

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/brandtrack-cli/internal/model"
)

// maxTopContexts bounds the context excerpts kept per brand.
const maxTopContexts = 5

// contextDedupPrefix is how many lowercased characters identify a context for
// dedup purposes.
const contextDedupPrefix = 50

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// VisibilityScore is the percentage of analyzed prompts where the brand
// appeared at least once.
func VisibilityScore(promptsWithMention, totalPrompts int) float64 {
	if totalPrompts == 0 {
		return 0
	}
	return round1(float64(promptsWithMention) / float64(totalPrompts) * 100)
}

// CitationShare is the brand's share of all mention occurrences.
func CitationShare(brandMentions, allMentions int) float64 {
	if allMentions == 0 {
		return 0
	}
	return round1(float64(brandMentions) / float64(allMentions) * 100)
}

// Winner returns the brand with the highest mention count, ties broken by
// lower rank. A true tie on both count and rank has no winner: an arbitrary
// pick would make reruns disagree.
func Winner(mentions []model.BrandMention) string {
	if len(mentions) == 0 {
		return ""
	}

	best := mentions[0]
	tied := false
	for _, m := range mentions[1:] {
		switch {
		case m.Count > best.Count:
			best = m
			tied = false
		case m.Count == best.Count && m.Rank < best.Rank:
			best = m
			tied = false
		case m.Count == best.Count && m.Rank == best.Rank:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best.Brand
}

// Loser returns the least prominent brand: minimum count, ties broken by
// higher rank. It requires at least two mentioned brands; a single mention
// has nobody to lose to.
func Loser(mentions []model.BrandMention) string {
	if len(mentions) < 2 {
		return ""
	}

	worst := mentions[0]
	for _, m := range mentions[1:] {
		if m.Count < worst.Count || (m.Count == worst.Count && m.Rank > worst.Rank) {
			worst = m
		}
	}
	return worst.Brand
}

// BuildPromptResults merges raw answers with their extraction output into the
// per-prompt records everything downstream consumes. Every answer yields one
// result; failed answers carry empty mention data.
func BuildPromptResults(answers []model.RawAnswer, extractions []model.ExtractionResult, brands model.TrackedBrands) []model.PromptResult {
	byID := make(map[string]model.ExtractionResult, len(extractions))
	for _, e := range extractions {
		byID[e.PromptID] = e
	}

	results := make([]model.PromptResult, 0, len(answers))
	for _, a := range answers {
		r := model.PromptResult{
			PromptID:   a.PromptID,
			Platform:   a.Platform,
			PromptText: a.PromptText,
			Response:   a.Text,
			Success:    a.Success,
			Degraded:   a.Degraded,
			ErrorKind:  a.ErrorKind,
		}
		if e, ok := byID[a.PromptID]; ok {
			r.Mentions = e.Mentions
			r.Citations = e.Citations
		}

		r.PromptWinner = Winner(r.Mentions)
		r.PromptLoser = Loser(r.Mentions)

		mentioned := make(map[string]model.BrandMention, len(r.Mentions))
		for _, m := range r.Mentions {
			mentioned[m.Brand] = m
		}
		if m, ok := mentioned[brands.MyBrand]; ok {
			r.MyBrandMentioned = true
			r.MyBrandRank = m.Rank
		}
		r.CompetitorsMentioned = make([]string, 0, len(brands.Competitors))
		r.CompetitorsMissed = make([]string, 0, len(brands.Competitors))
		for _, c := range brands.Competitors {
			if _, ok := mentioned[c]; ok {
				r.CompetitorsMentioned = append(r.CompetitorsMentioned, c)
			} else {
				r.CompetitorsMissed = append(r.CompetitorsMissed, c)
			}
		}
		results = append(results, r)
	}
	return results
}

// BrandMetricsFor aggregates one brand's view of all successful prompt
// results.
func BrandMetricsFor(brand string, results []model.PromptResult) model.BrandMetrics {
	m := model.BrandMetrics{
		Brand:             brand,
		PlatformBreakdown: make(map[string]model.PlatformStats),
		TopContexts:       []string{},
	}

	var (
		allMentions        int
		brandMentions      int
		contexts           []string
		promptsByPlatform  = make(map[string]int)
		mentionsByPlatform = make(map[string]int)
		hitsByPlatform     = make(map[string]int)
		allByPlatform      = make(map[string]int)
	)

	for _, r := range results {
		if !r.Success {
			continue
		}
		m.TotalPromptsAnalyzed++
		promptsByPlatform[r.Platform]++

		var brandMention *model.BrandMention
		for i := range r.Mentions {
			allMentions += r.Mentions[i].Count
			allByPlatform[r.Platform] += r.Mentions[i].Count
			if strings.EqualFold(r.Mentions[i].Brand, brand) {
				brandMention = &r.Mentions[i]
			}
		}

		if brandMention != nil {
			m.PromptsWithMention++
			hitsByPlatform[r.Platform]++
			brandMentions += brandMention.Count
			m.TotalMentions += brandMention.Count
			mentionsByPlatform[r.Platform] += brandMention.Count
			if brandMention.Context != "" {
				contexts = append(contexts, brandMention.Context)
			}
		} else {
			m.PromptsMissed++
		}

		if r.PromptWinner != "" {
			if strings.EqualFold(r.PromptWinner, brand) {
				m.PromptsWon++
			} else if brandMention != nil {
				if strings.EqualFold(r.PromptLoser, brand) {
					m.PromptsLost++
				} else {
					m.PromptsTied++
				}
			}
		}
	}

	m.VisibilityScore = VisibilityScore(m.PromptsWithMention, m.TotalPromptsAnalyzed)
	m.CitationShare = CitationShare(brandMentions, allMentions)

	for platform, total := range promptsByPlatform {
		m.PlatformBreakdown[platform] = model.PlatformStats{
			VisibilityScore:    VisibilityScore(hitsByPlatform[platform], total),
			CitationShare:      CitationShare(mentionsByPlatform[platform], allByPlatform[platform]),
			Mentions:           mentionsByPlatform[platform],
			PromptsWithMention: hitsByPlatform[platform],
			TotalPrompts:       total,
		}
	}

	seen := make(map[string]bool)
	for _, ctx := range contexts {
		key := strings.ToLower(ctx)
		if len(key) > contextDedupPrefix {
			key = key[:contextDedupPrefix]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		m.TopContexts = append(m.TopContexts, ctx)
		if len(m.TopContexts) >= maxTopContexts {
			break
		}
	}

	return m
}

// Aggregate computes per-brand metrics for the whole tracked set, in the
// declared brand order.
func Aggregate(results []model.PromptResult, brands model.TrackedBrands) []model.BrandMetrics {
	all := brands.All()
	out := make([]model.BrandMetrics, 0, len(all))
	for _, b := range all {
		out = append(out, BrandMetricsFor(b, results))
	}
	return out
}

// BuildLeaderboard ranks brands by total mentions, visibility score breaking
// ties. The sort is stable: brands still tied keep their input order, which
// keeps reruns over the same data deterministic.
func BuildLeaderboard(brandMetrics []model.BrandMetrics, platforms []string) model.Leaderboard {
	ordered := make([]model.BrandMetrics, len(brandMetrics))
	copy(ordered, brandMetrics)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalMentions != ordered[j].TotalMentions {
			return ordered[i].TotalMentions > ordered[j].TotalMentions
		}
		return ordered[i].VisibilityScore > ordered[j].VisibilityScore
	})

	lb := model.Leaderboard{
		Overall:    make([]model.LeaderboardEntry, 0, len(ordered)),
		ByPlatform: make(map[string][]model.PlatformLeaderboardEntry, len(platforms)),
	}
	for i, m := range ordered {
		lb.Overall = append(lb.Overall, model.LeaderboardEntry{
			Rank:            i + 1,
			Brand:           m.Brand,
			VisibilityScore: m.VisibilityScore,
			CitationShare:   m.CitationShare,
			TotalMentions:   m.TotalMentions,
			PromptsWon:      m.PromptsWon,
		})
	}

	for _, platform := range platforms {
		var rows []model.PlatformLeaderboardEntry
		for _, m := range brandMetrics {
			stats, ok := m.PlatformBreakdown[platform]
			if !ok {
				continue
			}
			rows = append(rows, model.PlatformLeaderboardEntry{
				Brand:         m.Brand,
				CitationShare: stats.CitationShare,
				Mentions:      stats.Mentions,
			})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].CitationShare > rows[j].CitationShare
		})
		for i := range rows {
			rows[i].Rank = i + 1
		}
		lb.ByPlatform[platform] = rows
	}
	return lb
}
