package fuzzy

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	assert.Equal(t, "kampala central", Process("  Kampala-Central "))
	assert.Equal(t, "o brien", Process("O'Brien"))
	assert.Equal(t, "", Process("!!!"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("abc", "abc"))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
	// one block "okel", 2*4/10
	assert.Equal(t, 80, Ratio("okelo", "okell"))
	// the leading "a" only pairs with the "a" right of block "bcd"
	assert.Equal(t, 75, Ratio("abcd", "bcda"))
}

func TestMatchingBlocks(t *testing.T) {
	m := newMatcher([]rune("okelo"), []rune("alice okello"))
	assert.Equal(t, []block{{0, 6, 4}, {4, 11, 1}, {5, 12, 0}}, m.matchingBlocks())
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Alice", "Alice Okello", 100},
		{"alice okello", "ALICE", 100},
		{"Okelo", "Alice Okello", 80},
		{"Kampla", "Kampala Central", 83},
		{"", "Alice", 0},
		{"Jinja", "Jinja East", 100},
		// windows anchored near the end of the longer string are clipped
		{"Okello", "Bob Okel", 80},
		{"Akellonia", "Esther Akello", 80},
		{"Kampala Centr", "Central Kampala", 70},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, PartialRatio(tt.a, tt.b))
		})
	}
}

func TestPartialRatioSymmetric(t *testing.T) {
	assert.Equal(t, PartialRatio("Mugisha", "Bob Mugisha"), PartialRatio("Bob Mugisha", "Mugisha"))
}

func TestExtractIDs(t *testing.T) {
	pool := map[int]string{
		1: "Alice Okello",
		2: "Bob Mugisha",
		3: "Alice Okelo",
	}

	matches := ExtractIDs("Alice Okelo", pool, 75)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		assert.GreaterOrEqual(t, m.Score, 75)
	}
	sort.Ints(ids)
	assert.Equal(t, []int{1, 3}, ids)
}

func TestExtractIDsEmptyQuery(t *testing.T) {
	assert.Empty(t, ExtractIDs("  --  ", map[int]string{1: "Alice"}, 0))
}

func BenchmarkPartialRatio(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = PartialRatio("Kampla Centrl", "Kampala Central Division")
	}
}
