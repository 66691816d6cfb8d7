package satcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlayFromEnvUnset(t *testing.T) {
	t.Setenv("SATPREDICT_TEST_LOCATIONS_UNSET", "")
	out, err := LoadOverlayFromEnv("SATPREDICT_TEST_LOCATIONS_UNSET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty overlay when env var is unset, got %v", out)
	}
}

func TestLoadOverlayFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.txt")
	content := "# custom ground stations\nbase_camp, -77.85, 166.67, 20\n\nremote_site,40.0,-105.0,1600\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	t.Setenv("SATPREDICT_TEST_LOCATIONS", path)
	out, err := LoadOverlayFromEnv("SATPREDICT_TEST_LOCATIONS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(out))
	}
	bc, ok := out["base_camp"]
	if !ok {
		t.Fatalf("expected base_camp location to be present")
	}
	if bc.LatDeg != -77.85 || bc.LonDeg != 166.67 || bc.ElevM != 20 {
		t.Errorf("unexpected base_camp fields: %+v", bc)
	}
}

func TestLoadOverlayFromEnvMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("bad_line,only,three\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	t.Setenv("SATPREDICT_TEST_LOCATIONS_BAD", path)
	if _, err := LoadOverlayFromEnv("SATPREDICT_TEST_LOCATIONS_BAD"); err == nil {
		t.Fatalf("expected an error for a malformed line")
	}
}
