// Package fuzzy scores approximate string matches on a 0–100 scale. Inputs
// are case folded, non-alphanumeric runes become spaces, and surrounding
// whitespace is trimmed before scoring.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Match is a pool entry that scored at or above the cutoff.
type Match struct {
	ID    int
	Score int
}

// Process normalises s for scoring.
func Process(s string) string {
	folded := cases.Fold().String(s)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.TrimSpace(mapped)
}

// Ratio returns twice the number of matched runes over the combined length,
// scaled to 100. Matches are the recursive longest-common-block alignment of
// a against b. Inputs are compared as given.
func Ratio(a, b string) int {
	return toScore(ratio([]rune(a), []rune(b)))
}

// PartialRatio scores the shorter string against windows of the longer one
// anchored at each matching block. Windows are clipped at the end of the
// longer string. An exact substring scores 100.
func PartialRatio(a, b string) int {
	return partialRatio([]rune(Process(a)), []rune(Process(b)))
}

// ExtractIDs scores query against every entry of pool and returns the ones
// scoring at least cutoff. The query is processed once; an empty processed
// query matches nothing. Result order is unspecified.
func ExtractIDs(query string, pool map[int]string, cutoff int) []Match {
	q := []rune(Process(query))
	if len(q) == 0 {
		return nil
	}
	var matches []Match
	for id, choice := range pool {
		score := partialRatio(q, []rune(Process(choice)))
		if score >= cutoff {
			matches = append(matches, Match{ID: id, Score: score})
		}
	}
	return matches
}

func partialRatio(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for _, blk := range newMatcher(shorter, longer).matchingBlocks() {
		start := blk.b - blk.a
		if start < 0 {
			start = 0
		}
		end := min(start+len(shorter), len(longer))
		r := ratio(shorter, longer[start:end])
		if r > 0.995 {
			return 100
		}
		best = max(best, r)
	}
	return toScore(best)
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	matched := 0
	for _, blk := range newMatcher(a, b).matchingBlocks() {
		matched += blk.size
	}
	return 2 * float64(matched) / float64(total)
}

// block is a run of size equal runes at a[a:] and b[b:].
type block struct {
	a, b, size int
}

// matcher aligns a against b by repeatedly taking the longest common block
// and recursing on both sides of it. In a b of 200 runes or more, runes
// occurring in more than 1% of positions are not used to seed blocks.
type matcher struct {
	a, b    []rune
	b2j     map[rune][]int
	popular map[rune]bool
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{a: a, b: b, b2j: make(map[rune][]int)}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}
	if n := len(b); n >= 200 {
		limit := n/100 + 1
		for r, idx := range m.b2j {
			if len(idx) > limit {
				if m.popular == nil {
					m.popular = make(map[rune]bool)
				}
				m.popular[r] = true
				delete(m.b2j, r)
			}
		}
	}
	return m
}

// longestMatch returns the earliest longest block within a[alo:ahi] and
// b[blo:bhi].
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) block {
	best := block{a: alo, b: blo}
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = block{a: i - k + 1, b: j - k + 1, size: k}
			}
		}
		j2len = next
	}
	for best.a > alo && best.b > blo && m.a[best.a-1] == m.b[best.b-1] {
		best.a--
		best.b--
		best.size++
	}
	for best.a+best.size < ahi && best.b+best.size < bhi && m.a[best.a+best.size] == m.b[best.b+best.size] {
		best.size++
	}
	return best
}

// matchingBlocks returns the blocks ordered by position, followed by the
// empty sentinel block at (len(a), len(b)).
func (m *matcher) matchingBlocks() []block {
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	var blocks []block
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		blk := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if blk.size == 0 {
			continue
		}
		blocks = append(blocks, blk)
		if s.alo < blk.a && s.blo < blk.b {
			queue = append(queue, span{s.alo, blk.a, s.blo, blk.b})
		}
		if blk.a+blk.size < s.ahi && blk.b+blk.size < s.bhi {
			queue = append(queue, span{blk.a + blk.size, s.ahi, blk.b + blk.size, s.bhi})
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].a != blocks[j].a {
			return blocks[i].a < blocks[j].a
		}
		return blocks[i].b < blocks[j].b
	})
	return append(blocks, block{a: len(m.a), b: len(m.b)})
}

// toScore scales r to 0–100, rounding halves to even.
func toScore(r float64) int {
	return int(math.RoundToEven(r * 100))
}
