// Package mp holds the in-memory MP dataset: the ordered record store, the
// constituency and party indices derived from it, the analytics snapshot, and
// the query cascade that resolves list requests against them.
//
// A Dataset is built once at startup and never mutated afterwards, so any
// number of request goroutines may read it concurrently without locking.
package mp

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/errors"
)

// MP is a single nominee record.
type MP struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Constituency string `json:"constituency"`
	Party        string `json:"party"`
}

// Validate reports the first missing field of m.
func (m MP) Validate() error {
	switch {
	case m.ID <= 0:
		return fmt.Errorf("id must be positive, got %d", m.ID)
	case m.Name == "":
		return fmt.Errorf("record %d: name is required", m.ID)
	case m.Constituency == "":
		return fmt.Errorf("record %d: constituency is required", m.ID)
	case m.Party == "":
		return fmt.Errorf("record %d: party is required", m.ID)
	}
	return nil
}

// State is the dataset lifecycle phase.
type State int

const (
	StateUnloaded State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Dataset is the immutable, process-wide view of the loaded records.
type Dataset struct {
	state          State
	records        []MP
	byConstituency map[string][]MP
	byParty        map[string][]MP
	analytics      Analytics
	fingerprint    string
	fuzzyCutoff    int
	logger         *slog.Logger
}

// Unavailable returns a dataset in the unloaded state. Every accessor on it
// reports ErrDatasetUnavailable.
func Unavailable() *Dataset {
	return &Dataset{
		state:          StateUnloaded,
		byConstituency: map[string][]MP{},
		byParty:        map[string][]MP{},
		logger:         slog.Default().With("component", "mp-dataset"),
	}
}

// Build validates records, derives the indices and analytics, and returns a
// ready dataset. Invalid and duplicate-id records are skipped with a warning.
// If no record survives, the dataset stays unloaded.
func Build(records []MP, cfg config.QueryConfig) *Dataset {
	d := Unavailable()
	d.fuzzyCutoff = cfg.FuzzyCutoff

	seen := make(map[int]struct{}, len(records))
	valid := make([]MP, 0, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			d.logger.Warn("skipping invalid record", "position", i, "error", err)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			d.logger.Warn("skipping duplicate record id", "position", i, "id", rec.ID)
			continue
		}
		seen[rec.ID] = struct{}{}
		valid = append(valid, rec)
	}
	if skipped := len(records) - len(valid); skipped > 0 {
		d.logger.Warn("dataset loaded with skipped records", "skipped", skipped, "kept", len(valid))
	}
	if len(valid) == 0 {
		d.logger.Error("dataset has no usable records")
		return d
	}

	d.records = valid
	d.byConstituency, d.byParty, d.analytics = buildIndices(valid)
	d.fingerprint = fingerprint(valid)
	d.state = StateReady
	return d
}

// State reports whether the dataset is usable.
func (d *Dataset) State() State {
	return d.state
}

// Ready is shorthand for State() == StateReady.
func (d *Dataset) Ready() bool {
	return d.state == StateReady
}

// Len returns the number of records in the store.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Fingerprint identifies the record set; it changes whenever a different
// dataset is loaded.
func (d *Dataset) Fingerprint() string {
	return d.fingerprint
}

// Get returns the record with the given id.
func (d *Dataset) Get(id int) (MP, error) {
	if !d.Ready() {
		return MP{}, apperrors.ErrDatasetUnavailable
	}
	for _, rec := range d.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return MP{}, apperrors.Newf(apperrors.ErrMPNotFound, http.StatusNotFound, "MP with id %d not found", id)
}

// Analytics returns the precomputed snapshot.
func (d *Dataset) Analytics() (Analytics, error) {
	if !d.Ready() {
		return Analytics{}, apperrors.ErrDatasetUnavailable
	}
	return d.analytics, nil
}

func fingerprint(records []MP) string {
	h := fnv.New64a()
	for _, rec := range records {
		h.Write([]byte(strconv.Itoa(rec.ID)))
		h.Write([]byte{0})
		h.Write([]byte(rec.Name))
		h.Write([]byte{0})
		h.Write([]byte(rec.Constituency))
		h.Write([]byte{0})
		h.Write([]byte(rec.Party))
		h.Write([]byte{0})
	}
	return strconv.Itoa(len(records)) + "-" + strconv.FormatUint(h.Sum64(), 16)
}
