package mp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginateEmpty(t *testing.T) {
	page := Paginate(nil, 1, 10)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 0, page.TotalPages)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestPaginateOutOfRange(t *testing.T) {
	page := Paginate(largeDataset(25), 4, 10)
	assert.Equal(t, 25, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Empty(t, page.Items)

	page = Paginate(largeDataset(25), 1<<40, 100)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestPaginateConcatenationReproducesInput(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 99, 100, 101, 250} {
		for _, limit := range []int{1, 7, 10, 100} {
			matched := largeDataset(n)
			first := Paginate(matched, 1, limit)
			assert.Equal(t, (n+limit-1)/limit, first.TotalPages, "n=%d limit=%d", n, limit)

			var all []MP
			for p := 1; p <= first.TotalPages; p++ {
				page := Paginate(matched, p, limit)
				assert.Equal(t, n, page.TotalItems)
				assert.LessOrEqual(t, len(page.Items), limit)
				all = append(all, page.Items...)
			}
			assert.Equal(t, matched, all, "n=%d limit=%d", n, limit)
		}
	}
}

func TestPaginateDoesNotShareBacking(t *testing.T) {
	matched := largeDataset(5)
	page := Paginate(matched, 1, 2)
	page.Items[0].Name = "changed"
	assert.Equal(t, "Member 1", matched[0].Name)
}

func TestListScenario(t *testing.T) {
	d := Build(scenarioRecords(), testQueryConfig)
	matched, err := d.Resolve(Query{Party: "nrm"})
	assert.NoError(t, err)

	page := Paginate(matched, 1, 10)
	assert.Equal(t, []int{2, 3}, ids(page.Items))
	assert.Equal(t, 2, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
}
