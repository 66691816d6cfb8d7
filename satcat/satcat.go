// Package satcat provides the location-catalog overlay mechanism of spec §9:
// a single environment variable naming a flat file of additional ground
// locations, loaded on demand. Nothing is cached: every call to
// LoadOverlayFromEnv reads the variable and the file again.
package satcat

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/satpredict/satpredict/location"
)

// EnvVar is the environment variable original_source's locations module
// reads as ORBIT_PREDICTOR_CUSTOM_LOCATIONS. Go has no runtime
// module-loading equivalent, so this overlay is a flat file instead of an
// importable module (see DESIGN.md).
const EnvVar = "SATPREDICT_CUSTOM_LOCATIONS"

// LoadOverlayFromEnv reads the file named by the given environment variable
// (typically EnvVar) and returns the locations it defines, keyed by name.
// If the variable is unset, it returns an empty, non-nil map and no error
// (spec §9: the overlay is purely additive and optional).
//
// File format: one location per line, "name,lat_deg,lon_deg,elev_m". Blank
// lines and lines starting with '#' are ignored.
func LoadOverlayFromEnv(envVar string) (map[string]location.Location, error) {
	out := map[string]location.Location{}

	path := os.Getenv(envVar)
	if path == "" {
		return out, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "satcat: opening custom locations file %q", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		loc, err := parseLocationLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "satcat: %s line %d", path, lineNo)
		}
		out[loc.Name] = loc
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "satcat: reading %q", path)
	}
	return out, nil
}

func parseLocationLine(line string) (location.Location, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return location.Location{}, errors.Errorf("expected 4 comma-separated fields, got %d", len(fields))
	}
	name := strings.TrimSpace(fields[0])
	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return location.Location{}, errors.Wrap(err, "latitude field")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return location.Location{}, errors.Wrap(err, "longitude field")
	}
	elev, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return location.Location{}, errors.Wrap(err, "elevation field")
	}
	return location.New(name, lat, lon, elev), nil
}
