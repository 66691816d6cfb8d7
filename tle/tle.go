// Package tle defines the Two-Line Element contract the core consumes, and
// two trivial in-core implementations (memory, file) for testability. TLE
// ingestion proper (HTTP, catalog scraping) is out of core per spec §1 — an
// external collaborator satisfying the Source interface.
package tle

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/satpredict/satpredict/frame"
)

// ErrNotFound is returned by a Source when no TLE matches the query.
var ErrNotFound = errors.New("tle: not found")

// TLE is an immutable Two-Line Element set for a single satellite.
type TLE struct {
	SatID string
	Line1 string
	Line2 string
	Epoch frame.Instant
}

// Source looks up a TLE for a satellite valid at (or nearest to) a given
// instant (spec §6). Concrete implementations live outside the core; the
// two below are provided because the examples and tests need something to
// satisfy the interface.
type Source interface {
	GetTLE(ctx context.Context, satID string, when frame.Instant) (TLE, error)
}

// MemorySource is a map-backed Source, keyed by satellite ID, holding a
// single TLE per satellite (no history).
type MemorySource struct {
	bySatID map[string]TLE
}

// NewMemorySource builds a MemorySource from the given TLEs.
func NewMemorySource(tles ...TLE) *MemorySource {
	m := &MemorySource{bySatID: make(map[string]TLE, len(tles))}
	for _, tl := range tles {
		m.bySatID[tl.SatID] = tl
	}
	return m
}

// GetTLE implements Source.
func (m *MemorySource) GetTLE(_ context.Context, satID string, _ frame.Instant) (TLE, error) {
	tl, ok := m.bySatID[satID]
	if !ok {
		return TLE{}, errors.Wrapf(ErrNotFound, "satellite %q", satID)
	}
	return tl, nil
}

// FileSource reads TLEs from a flat file, one satellite per three lines:
// sate_id, line1, line2 (spec §6).
type FileSource struct {
	path string
}

// NewFileSource builds a FileSource reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// GetTLE implements Source, re-reading the file on every call (the file is
// expected to be small and rarely consulted — this is a testing/example
// convenience, not a production ingestion path, per spec §1).
func (f *FileSource) GetTLE(_ context.Context, satID string, when frame.Instant) (TLE, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return TLE{}, errors.Wrap(err, "tle: open file source")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if !scanner.Scan() {
			break
		}
		line1 := scanner.Text()
		if !scanner.Scan() {
			break
		}
		line2 := scanner.Text()

		if name == satID {
			return TLE{SatID: satID, Line1: line1, Line2: line2, Epoch: when}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return TLE{}, errors.Wrap(err, "tle: scan file source")
	}
	return TLE{}, errors.Wrapf(ErrNotFound, "satellite %q in %s", satID, f.path)
}
