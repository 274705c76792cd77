package mp

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/fuzzy"
	apperrors "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/errors"
)

// Query holds the optional list filters. Empty fields are not applied.
type Query struct {
	Party        string `json:"party,omitempty"`
	Constituency string `json:"constituency,omitempty"`
	Search       string `json:"search,omitempty"`
	Fuzzy        string `json:"fuzzy,omitempty"`
}

// Empty reports whether no filter is set.
func (q Query) Empty() bool {
	return q.Party == "" && q.Constituency == "" && q.Search == "" && q.Fuzzy == ""
}

// Resolve returns the records matching q in store order. Filters run from
// cheapest to most expensive, each narrowing the previous stage's result:
// party bucket, constituency bucket (or a scan when party already applied),
// substring search, then fuzzy matching.
//
// The returned slice may share memory with the dataset and must not be
// modified.
func (d *Dataset) Resolve(q Query) ([]MP, error) {
	if !d.Ready() {
		return nil, apperrors.ErrDatasetUnavailable
	}

	candidates := d.records

	if q.Party != "" {
		candidates = d.byParty[fold(q.Party)]
	}

	if q.Constituency != "" {
		want := fold(q.Constituency)
		if q.Party != "" {
			candidates = filter(candidates, func(rec MP) bool {
				return fold(rec.Constituency) == want
			})
		} else {
			candidates = d.byConstituency[want]
		}
	}

	if q.Search != "" {
		needle := fold(q.Search)
		candidates = filter(candidates, func(rec MP) bool {
			return strings.Contains(fold(rec.Name), needle) ||
				strings.Contains(fold(rec.Constituency), needle)
		})
	}

	if q.Fuzzy != "" {
		candidates = d.fuzzyFilter(candidates, q.Fuzzy)
	}

	if candidates == nil {
		return []MP{}, nil
	}
	return candidates, nil
}

// fuzzyFilter keeps candidates whose name or constituency scores at least
// the cutoff against text.
func (d *Dataset) fuzzyFilter(candidates []MP, text string) []MP {
	if len(candidates) == 0 {
		return candidates
	}
	names := make(map[int]string, len(candidates))
	constituencies := make(map[int]string, len(candidates))
	for _, rec := range candidates {
		names[rec.ID] = rec.Name
		constituencies[rec.ID] = rec.Constituency
	}

	matched := make(map[int]struct{})
	for _, m := range fuzzy.ExtractIDs(text, names, d.fuzzyCutoff) {
		matched[m.ID] = struct{}{}
	}
	for _, m := range fuzzy.ExtractIDs(text, constituencies, d.fuzzyCutoff) {
		matched[m.ID] = struct{}{}
	}

	return filter(candidates, func(rec MP) bool {
		_, ok := matched[rec.ID]
		return ok
	})
}

func filter(records []MP, keep func(MP) bool) []MP {
	out := make([]MP, 0, len(records))
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
