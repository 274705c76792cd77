package mp

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/errors"
)

var testQueryConfig = config.QueryConfig{DefaultLimit: 20, MaxLimit: 100, FuzzyCutoff: 75}

func scenarioRecords() []MP {
	return []MP{
		{ID: 1, Name: "Alice Okello", Constituency: "Kampala Central", Party: "NUP"},
		{ID: 2, Name: "Bob Mugisha", Constituency: "Kampala Central", Party: "NRM"},
		{ID: 3, Name: "Alice Okelo", Constituency: "Jinja East", Party: "NRM"},
	}
}

func ids(records []MP) []int {
	out := make([]int, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID)
	}
	return out
}

func TestBuildScenario(t *testing.T) {
	d := Build(scenarioRecords(), testQueryConfig)
	require.True(t, d.Ready())
	assert.Equal(t, StateReady, d.State())
	assert.Equal(t, 3, d.Len())

	got, err := d.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Bob Mugisha", got.Name)

	_, err = d.Get(99)
	assert.ErrorIs(t, err, apperrors.ErrMPNotFound)
	assert.Equal(t, "MP with id 99 not found", apperrors.Message(err))

	analytics, err := d.Analytics()
	require.NoError(t, err)
	assert.Equal(t, 3, analytics.TotalMPs)
	assert.Equal(t, PartyDistribution{{"NRM", 2}, {"NUP", 1}}, analytics.PartyDistribution)
}

func TestUnavailable(t *testing.T) {
	for name, d := range map[string]*Dataset{
		"never loaded":  Unavailable(),
		"empty records": Build(nil, testQueryConfig),
		"all invalid":   Build([]MP{{ID: 0, Name: "x"}}, testQueryConfig),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, StateUnloaded, d.State())

			_, err := d.Resolve(Query{})
			assert.ErrorIs(t, err, apperrors.ErrDatasetUnavailable)

			_, err = d.Get(1)
			assert.ErrorIs(t, err, apperrors.ErrDatasetUnavailable)

			_, err = d.Analytics()
			assert.ErrorIs(t, err, apperrors.ErrDatasetUnavailable)
		})
	}
}

func TestBuildSkipsInvalidAndDuplicateRecords(t *testing.T) {
	records := append(scenarioRecords(),
		MP{ID: 4, Name: "", Constituency: "Gulu", Party: "FDC"},
		MP{ID: 2, Name: "Impostor", Constituency: "Gulu", Party: "FDC"},
		MP{ID: 5, Name: "Carol Auma", Constituency: "Gulu", Party: "FDC"},
	)
	d := Build(records, testQueryConfig)
	require.True(t, d.Ready())
	assert.Equal(t, 4, d.Len())

	got, err := d.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Bob Mugisha", got.Name)
}

func TestIndexInvariants(t *testing.T) {
	records := append(scenarioRecords(),
		MP{ID: 4, Name: "Dan Opio", Constituency: "KAMPALA CENTRAL", Party: "nrm"},
		MP{ID: 5, Name: "Eve Nambi", Constituency: "Gulu", Party: "IND"},
	)
	d := Build(records, testQueryConfig)

	countBuckets := func(index map[string][]MP, key func(MP) string) {
		seen := make(map[int]int)
		total := 0
		for k, bucket := range index {
			for _, rec := range bucket {
				assert.Equal(t, fold(key(rec)), k)
				seen[rec.ID]++
				total++
			}
		}
		assert.Equal(t, len(records), total)
		for _, rec := range records {
			assert.Equal(t, 1, seen[rec.ID], "record %d", rec.ID)
		}
	}
	countBuckets(d.byConstituency, func(m MP) string { return m.Constituency })
	countBuckets(d.byParty, func(m MP) string { return m.Party })

	assert.Equal(t, []int{1, 2, 4}, ids(d.byConstituency["kampala central"]))
	assert.Equal(t, []int{2, 3, 4}, ids(d.byParty["nrm"]))

	analytics, err := d.Analytics()
	require.NoError(t, err)
	assert.Equal(t, analytics.TotalMPs, analytics.PartyDistribution.Total())
}

func TestPartyDistributionTiesKeepFirstSeenOrder(t *testing.T) {
	d := Build([]MP{
		{ID: 1, Name: "A", Constituency: "C1", Party: "IND"},
		{ID: 2, Name: "B", Constituency: "C2", Party: "FDC"},
		{ID: 3, Name: "C", Constituency: "C3", Party: "NRM"},
		{ID: 4, Name: "D", Constituency: "C4", Party: "NRM"},
		{ID: 5, Name: "E", Constituency: "C5", Party: "FDC"},
	}, testQueryConfig)
	analytics, err := d.Analytics()
	require.NoError(t, err)
	assert.Equal(t, PartyDistribution{{"FDC", 2}, {"NRM", 2}, {"IND", 1}}, analytics.PartyDistribution)
}

func TestPartyDistributionJSON(t *testing.T) {
	dist := PartyDistribution{{"NRM", 2}, {"NUP", 1}, {"IND", 1}}
	data, err := json.Marshal(Analytics{TotalMPs: 4, PartyDistribution: dist})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_mps":4,"party_distribution":{"NRM":2,"NUP":1,"IND":1}}`, string(data))
	assert.Contains(t, string(data), `{"NRM":2,"NUP":1,"IND":1}`)

	var decoded Analytics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, dist, decoded.PartyDistribution)
}

func TestFingerprint(t *testing.T) {
	a := Build(scenarioRecords(), testQueryConfig)
	b := Build(scenarioRecords(), testQueryConfig)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	changed := scenarioRecords()
	changed[0].Party = "NRM"
	c := Build(changed, testQueryConfig)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func largeDataset(n int) []MP {
	parties := []string{"NRM", "NUP", "FDC", "IND", "DP"}
	records := make([]MP, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, MP{
			ID:           i,
			Name:         fmt.Sprintf("Member %d", i),
			Constituency: fmt.Sprintf("District %d", i%37),
			Party:        parties[i%len(parties)],
		})
	}
	return records
}
