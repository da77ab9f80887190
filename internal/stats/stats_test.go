package stats

import (
	"fmt"
	"testing"

	"forgedb/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewsWithIssues(types ...models.IssueType) []*models.Review {
	out := make([]*models.Review, 0, len(types))
	for i, t := range types {
		out = append(out, &models.Review{ID: fmt.Sprintf("r%d", i), IssueType: t})
	}
	return out
}

func reviewsWithConflicts(lists ...[]string) []*models.Review {
	out := make([]*models.Review, 0, len(lists))
	for i, names := range lists {
		r := &models.Review{ID: fmt.Sprintf("r%d", i), IssueType: models.IssueClient}
		for _, n := range names {
			r.ConflictingMods = append(r.ConflictingMods, models.ConflictingMod{Name: n})
		}
		out = append(out, r)
	}
	return out
}

func TestIssueBreakdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		issues []models.IssueType
		want   models.IssueStats
	}{
		{name: "empty", issues: nil, want: models.IssueStats{}},
		{
			name:   "two thirds client",
			issues: []models.IssueType{models.IssueClient, models.IssueServer, models.IssueClient},
			want:   models.IssueStats{Client: 67, Server: 33, Both: 0},
		},
		{
			name:   "single category",
			issues: []models.IssueType{models.IssueBoth, models.IssueBoth},
			want:   models.IssueStats{Both: 100},
		},
		{
			name:   "halves round up",
			issues: []models.IssueType{models.IssueClient, models.IssueServer, models.IssueServer, models.IssueServer, models.IssueServer, models.IssueServer, models.IssueServer, models.IssueServer},
			want:   models.IssueStats{Client: 13, Server: 88},
		},
		{
			name:   "thirds do not sum to 100",
			issues: []models.IssueType{models.IssueClient, models.IssueServer, models.IssueBoth},
			want:   models.IssueStats{Client: 33, Server: 33, Both: 33},
		},
		{
			name:   "unknown type counts in total only",
			issues: []models.IssueType{models.IssueClient, "bogus"},
			want:   models.IssueStats{Client: 50},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IssueBreakdown(reviewsWithIssues(tt.issues...)))
		})
	}
}

func TestIssueBreakdownIgnoresNilEntries(t *testing.T) {
	t.Parallel()

	reviews := append(reviewsWithIssues(models.IssueClient, models.IssueServer), nil, nil)
	assert.Equal(t, models.IssueStats{Client: 50, Server: 50}, IssueBreakdown(reviews))
	assert.Equal(t, models.IssueStats{}, IssueBreakdown([]*models.Review{nil}))
}

func TestIssueBreakdownEachCategoryWithinRange(t *testing.T) {
	t.Parallel()

	types := []models.IssueType{models.IssueClient, models.IssueServer, models.IssueBoth}
	for n := 1; n <= 30; n++ {
		issues := make([]models.IssueType, n)
		for i := range issues {
			issues[i] = types[(i*7)%3]
		}
		got := IssueBreakdown(reviewsWithIssues(issues...))
		for _, v := range []int{got.Client, got.Server, got.Both} {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
	}
}

func TestRankConflictingMods(t *testing.T) {
	t.Parallel()

	t.Run("counts duplicates within and across reviews", func(t *testing.T) {
		t.Parallel()
		got := RankConflictingMods(reviewsWithConflicts(
			[]string{"A", "B"},
			[]string{"A"},
			[]string{"B", "B"},
		))
		assert.Equal(t, []models.ConflictCount{{Name: "B", Count: 3}, {Name: "A", Count: 2}}, got)
	})

	t.Run("truncates to five", func(t *testing.T) {
		t.Parallel()
		got := RankConflictingMods(reviewsWithConflicts(
			[]string{"a", "b", "c", "d", "e", "f", "g"},
			[]string{"g", "g"},
		))
		require.Len(t, got, MaxConflictingMods)
		assert.Equal(t, models.ConflictCount{Name: "g", Count: 3}, got[0])
		assert.Equal(t, []string{"a", "b", "c", "d"}, []string{got[1].Name, got[2].Name, got[3].Name, got[4].Name})
	})

	t.Run("ties break by name", func(t *testing.T) {
		t.Parallel()
		got := RankConflictingMods(reviewsWithConflicts([]string{"Zeta", "Alpha", "Mu"}))
		assert.Equal(t, []models.ConflictCount{
			{Name: "Alpha", Count: 1},
			{Name: "Mu", Count: 1},
			{Name: "Zeta", Count: 1},
		}, got)
	})

	t.Run("no conflicts", func(t *testing.T) {
		t.Parallel()
		got := RankConflictingMods(reviewsWithConflicts(nil, []string{}))
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("blank names ignored", func(t *testing.T) {
		t.Parallel()
		got := RankConflictingMods(reviewsWithConflicts([]string{"", "  ", "OptiFine"}))
		assert.Equal(t, []models.ConflictCount{{Name: "OptiFine", Count: 1}}, got)
	})
}

func TestCompute(t *testing.T) {
	t.Parallel()

	reviews := reviewsWithConflicts([]string{"JEI"}, []string{"JEI", "Sodium"})
	reviews[1].IssueType = models.IssueServer

	got := Compute(reviews)
	assert.Equal(t, models.IssueStats{Client: 50, Server: 50}, got.IssueStats)
	assert.Equal(t, []models.ConflictCount{{Name: "JEI", Count: 2}, {Name: "Sodium", Count: 1}}, got.ConflictingMods)
}

func TestRollup(t *testing.T) {
	t.Parallel()

	count, avg := Rollup(0)
	assert.Equal(t, 0, count)
	assert.Zero(t, avg)

	count, avg = Rollup(4)
	assert.Equal(t, 4, count)
	assert.Equal(t, PlaceholderRating, avg)
}
