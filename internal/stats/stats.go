// Package stats computes the derived data ForgeDB shows for a mod: issue-type
// percentages, the conflicting-mod ranking, the per-user reaction state of a
// review and the mod rollup. Everything here is pure and does no I/O.
package stats

import (
	"sort"
	"strings"

	"forgedb/internal/models"
)

// MaxConflictingMods bounds the conflicting-mod ranking.
const MaxConflictingMods = 5

// PlaceholderRating is stored as averageRating while a mod has reviews.
// Reviews carry no numeric score, so this is not a real average.
const PlaceholderRating = 5.0

// IssueBreakdown returns, for each issue type, the rounded percentage of
// reviews reporting it. Reviews with an unknown issue type count towards the
// total only; nil entries are ignored. Percentages are rounded independently
// and may not sum to 100.
func IssueBreakdown(reviews []*models.Review) models.IssueStats {
	var total, client, server, both int
	for _, r := range reviews {
		if r == nil {
			continue
		}
		total++
		switch r.IssueType {
		case models.IssueClient:
			client++
		case models.IssueServer:
			server++
		case models.IssueBoth:
			both++
		}
	}
	if total == 0 {
		return models.IssueStats{}
	}

	return models.IssueStats{
		Client: percent(client, total),
		Server: percent(server, total),
		Both:   percent(both, total),
	}
}

// percent is round-half-up(count/total*100) in integer arithmetic.
func percent(count, total int) int {
	return (200*count + total) / (2 * total)
}

// RankConflictingMods counts every conflicting-mod mention across reviews and
// returns the most frequent names, count descending then name ascending.
func RankConflictingMods(reviews []*models.Review) []models.ConflictCount {
	counts := make(map[string]int)
	for _, r := range reviews {
		if r == nil {
			continue
		}
		for _, cm := range r.ConflictingMods {
			if strings.TrimSpace(cm.Name) == "" {
				continue
			}
			counts[cm.Name]++
		}
	}

	ranking := make([]models.ConflictCount, 0, len(counts))
	for name, n := range counts {
		ranking = append(ranking, models.ConflictCount{Name: name, Count: n})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].Name < ranking[j].Name
	})

	if len(ranking) > MaxConflictingMods {
		ranking = ranking[:MaxConflictingMods]
	}
	return ranking
}

// Compute builds the statistics block of a mod detail response.
func Compute(reviews []*models.Review) models.ModStatistics {
	return models.ModStatistics{
		IssueStats:      IssueBreakdown(reviews),
		ConflictingMods: RankConflictingMods(reviews),
	}
}

// Rollup returns the derived fields stored on a mod with reviewCount reviews.
func Rollup(reviewCount int) (count int, averageRating float64) {
	if reviewCount <= 0 {
		return 0, 0
	}
	return reviewCount, PlaceholderRating
}
