package tle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/satpredict/satpredict/frame"
)

const (
	bugsat1Line1 = "1 40014U 14033E   14296.50471239  .00008823  00000-0  13007-3 0  4271"
	bugsat1Line2 = "2 40014  97.9512 217.1083 0010313  19.9076 340.2602 14.96616186 46048"
)

func TestMemorySource(t *testing.T) {
	when := frame.NewInstant(time.Date(2014, 10, 22, 20, 18, 11, 0, time.UTC))
	src := NewMemorySource(TLE{SatID: "BUGSAT-1", Line1: bugsat1Line1, Line2: bugsat1Line2, Epoch: when})

	got, err := src.GetTLE(context.Background(), "BUGSAT-1", when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Line1 != bugsat1Line1 {
		t.Errorf("got line1 %q", got.Line1)
	}

	_, err = src.GetTLE(context.Background(), "NOSUCHSAT", when)
	if err == nil {
		t.Fatalf("expected ErrNotFound for unknown satellite")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/catalog.tle"
	content := "BUGSAT-1\n" + bugsat1Line1 + "\n" + bugsat1Line2 + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	src := NewFileSource(path)
	when := frame.NewInstant(time.Now())
	got, err := src.GetTLE(context.Background(), "BUGSAT-1", when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Line2 != bugsat1Line2 {
		t.Errorf("got line2 %q", got.Line2)
	}

	if _, err := src.GetTLE(context.Background(), "MISSING", when); err == nil {
		t.Fatalf("expected error for missing satellite")
	}
}
