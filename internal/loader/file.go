package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
)

// ErrSourceMissing is returned when the dataset file does not exist.
var ErrSourceMissing = errors.New("dataset source missing")

// rawRecord mirrors the cleaned JSON with pointer fields so absent keys can be
// told apart from zero values.
type rawRecord struct {
	ID           *int    `json:"id"`
	Name         *string `json:"name"`
	Constituency *string `json:"constituency"`
	Party        *string `json:"party"`
}

// File loads records from a JSON array on disk.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile creates a File loader for path.
func NewFile(path string) *File {
	return &File{
		path:   path,
		logger: slog.Default().With("component", "file-loader", "path", path),
	}
}

// Load reads and decodes the file. Entries with missing fields or of the
// wrong shape are skipped with a warning; a malformed array is an error.
func (f *File) Load(ctx context.Context) ([]mp.MP, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found, run the data cleaner first", ErrSourceMissing, f.path)
		}
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer file.Close()
	return f.decode(ctx, file)
}

func (f *File) decode(ctx context.Context, r io.Reader) ([]mp.MP, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("reading %s: expected JSON array", f.path)
	}

	records := make([]mp.MP, 0, 512)
	for position := 0; dec.More(); position++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("reading %s at entry %d: %w", f.path, position, err)
		}
		rec, err := parseRecord(raw)
		if err != nil {
			f.logger.Warn("skipping malformed record", "position", position, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return records, nil
}

func parseRecord(raw json.RawMessage) (mp.MP, error) {
	var r rawRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return mp.MP{}, fmt.Errorf("decoding record: %w", err)
	}
	switch {
	case r.ID == nil:
		return mp.MP{}, errors.New("missing id")
	case r.Name == nil:
		return mp.MP{}, fmt.Errorf("record %d: missing name", *r.ID)
	case r.Constituency == nil:
		return mp.MP{}, fmt.Errorf("record %d: missing constituency", *r.ID)
	case r.Party == nil:
		return mp.MP{}, fmt.Errorf("record %d: missing party", *r.ID)
	}
	return mp.MP{
		ID:           *r.ID,
		Name:         *r.Name,
		Constituency: *r.Constituency,
		Party:        *r.Party,
	}, nil
}
