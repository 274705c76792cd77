// Package events publishes one record per API query to Kafka for offline
// analysis of how the directory is searched.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
)

type EventType string

const (
	EventList       EventType = "list"
	EventZeroResult EventType = "zero_result"
	EventLookup     EventType = "lookup"
	EventLookupMiss EventType = "lookup_miss"
	EventAnalytics  EventType = "analytics"
)

type QueryEvent struct {
	Type       EventType `json:"type"`
	Params     mp.Query  `json:"params"`
	Page       int       `json:"page,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	MPID       int       `json:"mp_id,omitempty"`
	TotalItems int       `json:"total_items"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
}
