package mp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// Analytics is the aggregate snapshot computed at build time.
type Analytics struct {
	TotalMPs          int               `json:"total_mps"`
	PartyDistribution PartyDistribution `json:"party_distribution"`
}

// PartyCount is one entry of the party distribution.
type PartyCount struct {
	Party string
	Count int
}

// PartyDistribution is ordered by descending count, ties in first-seen order.
// It encodes as a JSON object whose keys keep that order.
type PartyDistribution []PartyCount

// Total sums the counts.
func (p PartyDistribution) Total() int {
	total := 0
	for _, pc := range p {
		total += pc.Count
	}
	return total
}

func (p PartyDistribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pc := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pc.Party)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", pc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *PartyDistribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("party distribution: expected object, got %v", tok)
	}
	out := PartyDistribution{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("party distribution: expected string key, got %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("party distribution %q: %w", key, err)
		}
		out = append(out, PartyCount{Party: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// buildIndices walks records once, bucketing by folded constituency and
// party and counting parties by their raw code.
func buildIndices(records []MP) (byConstituency, byParty map[string][]MP, analytics Analytics) {
	byConstituency = make(map[string][]MP)
	byParty = make(map[string][]MP)
	positions := make(map[string]int)
	distribution := make(PartyDistribution, 0)

	for _, rec := range records {
		if pos, ok := positions[rec.Party]; ok {
			distribution[pos].Count++
		} else {
			positions[rec.Party] = len(distribution)
			distribution = append(distribution, PartyCount{Party: rec.Party, Count: 1})
		}

		constituencyKey := fold(rec.Constituency)
		byConstituency[constituencyKey] = append(byConstituency[constituencyKey], rec)

		partyKey := fold(rec.Party)
		byParty[partyKey] = append(byParty[partyKey], rec)
	}

	sort.SliceStable(distribution, func(i, j int) bool {
		return distribution[i].Count > distribution[j].Count
	})

	analytics = Analytics{
		TotalMPs:          len(records),
		PartyDistribution: distribution,
	}
	return byConstituency, byParty, analytics
}

// fold applies locale-independent case folding. A Caser holds state, so one
// is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
