package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/metrics"
)

var queryCfg = config.QueryConfig{DefaultLimit: 20, MaxLimit: 100, FuzzyCutoff: 75}

func scenarioDataset() *mp.Dataset {
	return mp.Build([]mp.MP{
		{ID: 1, Name: "Alice Okello", Constituency: "Kampala Central", Party: "NUP"},
		{ID: 2, Name: "Bob Mugisha", Constituency: "Kampala Central", Party: "NRM"},
		{ID: 3, Name: "Alice Okelo", Constituency: "Jinja East", Party: "NRM"},
	}, queryCfg)
}

type fakeCache struct {
	pages       map[string]mp.Page
	hits        int64
	misses      int64
	invalidated bool
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: map[string]mp.Page{}}
}

func (c *fakeCache) GetOrCompute(_ context.Context, q mp.Query, page, limit int, fn func() (mp.Page, error)) (mp.Page, bool, error) {
	key := strings.Join([]string{q.Party, q.Constituency, q.Search, q.Fuzzy, strconv.Itoa(page), strconv.Itoa(limit)}, "|")
	if p, ok := c.pages[key]; ok {
		c.hits++
		return p, true, nil
	}
	c.misses++
	p, err := fn()
	if err != nil {
		return mp.Page{}, false, err
	}
	c.pages[key] = p
	return p, false, nil
}

func (c *fakeCache) Invalidate(context.Context) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	n := int64(len(c.pages))
	c.pages = map[string]mp.Page{}
	c.invalidated = true
	return n, nil
}

func (c *fakeCache) Stats() (int64, int64) { return c.hits, c.misses }

func newTestHandler(ds *mp.Dataset, pc PageCache) (*Handler, *metrics.Metrics) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return New(ds, pc, nil, m, queryCfg), m
}

func listMPs(t *testing.T, h *Handler, rawQuery string) (*httptest.ResponseRecorder, mp.Page) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ListMPs(rec, httptest.NewRequest(http.MethodGet, "/api/mps?"+rawQuery, nil))
	var page mp.Page
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	}
	return rec, page
}

func itemIDs(p mp.Page) []int {
	out := make([]int, 0, len(p.Items))
	for _, rec := range p.Items {
		out = append(out, rec.ID)
	}
	return out
}

func TestListMPs(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantIDs   []int
		wantTotal int
		wantPages int
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", []int{1, 2, 3}, 3, 1, 1, 20},
		{"party case-insensitive", "party=nup", []int{1}, 1, 1, 1, 20},
		{"party and constituency", "party=NRM&constituency=kampala%20central", []int{2}, 1, 1, 1, 20},
		{"constituency only", "constituency=KAMPALA%20CENTRAL", []int{1, 2}, 2, 1, 1, 20},
		{"search", "search=alice", []int{1, 3}, 2, 1, 1, 20},
		{"fuzzy constituency", "fuzzy=Kampla", []int{1, 2}, 2, 1, 1, 20},
		{"second page", "page=2&limit=2", []int{3}, 3, 2, 2, 2},
		{"page past end", "page=5&limit=2", []int{}, 3, 2, 5, 2},
		{"unknown party", "party=XYZ", []int{}, 0, 0, 1, 20},
		{"empty params are absent", "party=&search=", []int{1, 2, 3}, 3, 1, 1, 20},
	}
	h, _ := newTestHandler(scenarioDataset(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, page := listMPs(t, h, tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantIDs, itemIDs(page))
			assert.Equal(t, tt.wantTotal, page.TotalItems)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}

func TestListMPsEmptyItemsEncodeAsArray(t *testing.T) {
	h, _ := newTestHandler(scenarioDataset(), nil)
	rec, _ := listMPs(t, h, "party=XYZ")
	assert.JSONEq(t, `{"page":1,"limit":20,"total_items":0,"total_pages":0,"items":[]}`, rec.Body.String())
}

func TestListMPsRejectsInvalidPaging(t *testing.T) {
	h, m := newTestHandler(scenarioDataset(), nil)
	for _, q := range []string{"page=0", "page=-1", "page=abc", "limit=0", "limit=101", "limit=1.5"} {
		t.Run(q, func(t *testing.T) {
			rec, _ := listMPs(t, h, q)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Equal(t, float64(0), testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.ResultHit)))
}

func TestListMPsDatasetUnavailable(t *testing.T) {
	h, m := newTestHandler(mp.Unavailable(), nil)
	rec, _ := listMPs(t, h, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"MP Database not loaded. Check server logs."}`, rec.Body.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.ResultUnavailable)))
}

func TestListMPsMetrics(t *testing.T) {
	h, m := newTestHandler(scenarioDataset(), nil)
	listMPs(t, h, "party=NRM&fuzzy=okelo")
	listMPs(t, h, "party=XYZ")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.ResultZero)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.QueryFilters.WithLabelValues("party")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueryFilters.WithLabelValues("fuzzy")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.QueryFilters.WithLabelValues("search")))
}

func TestListMPsUsesCache(t *testing.T) {
	pc := newFakeCache()
	h, m := newTestHandler(scenarioDataset(), pc)

	_, first := listMPs(t, h, "search=alice")
	_, second := listMPs(t, h, "search=alice")
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), pc.hits)
	assert.Equal(t, int64(1), pc.misses)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetMP(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode int
		wantBody string
	}{
		{"found", "2", http.StatusOK, `{"id":2,"name":"Bob Mugisha","constituency":"Kampala Central","party":"NRM"}`},
		{"unknown", "99", http.StatusNotFound, `{"error":"MP with id 99 not found"}`},
		{"not an integer", "abc", http.StatusBadRequest, `{"error":"mp id must be an integer"}`},
	}
	h, _ := newTestHandler(scenarioDataset(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/mps/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			rec := httptest.NewRecorder()
			h.GetMP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestGetMPDatasetUnavailable(t *testing.T) {
	h, _ := newTestHandler(mp.Unavailable(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/mps/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.GetMP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAnalytics(t *testing.T) {
	h, _ := newTestHandler(scenarioDataset(), nil)
	rec := httptest.NewRecorder()
	h.Analytics(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.JSONEq(t, `{"total_mps":3,"party_distribution":{"NRM":2,"NUP":1}}`, body)
	assert.Less(t, strings.Index(body, `"NRM"`), strings.Index(body, `"NUP"`), "distribution keeps descending-count order")
}

func TestAnalyticsDatasetUnavailable(t *testing.T) {
	h, _ := newTestHandler(mp.Unavailable(), nil)
	rec := httptest.NewRecorder()
	h.Analytics(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"MP Database not loaded. Check server logs."}`, rec.Body.String())
}

func TestRoot(t *testing.T) {
	h, _ := newTestHandler(scenarioDataset(), nil)
	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"message":"Welcome to the MP API. Query /api/mps, /api/mps/{id} and /api/analytics."}`, rec.Body.String())
}

func TestCacheEndpoints(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h, _ := newTestHandler(scenarioDataset(), nil)

		rec := httptest.NewRecorder()
		h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
		assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

		rec = httptest.NewRecorder()
		h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		pc := newFakeCache()
		h, _ := newTestHandler(scenarioDataset(), pc)
		listMPs(t, h, "")
		listMPs(t, h, "")
		listMPs(t, h, "party=NUP")

		rec := httptest.NewRecorder()
		h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
		assert.JSONEq(t, `{"hits":1,"misses":2,"total":3,"hit_rate":"33.3%"}`, rec.Body.String())

		rec = httptest.NewRecorder()
		h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"invalidated","keys_deleted":2}`, rec.Body.String())
		assert.True(t, pc.invalidated)
	})

	t.Run("invalidate failure", func(t *testing.T) {
		pc := newFakeCache()
		pc.err = errors.New("redis down")
		h, _ := newTestHandler(scenarioDataset(), pc)
		rec := httptest.NewRecorder()
		h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
