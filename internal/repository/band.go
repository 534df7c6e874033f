package repository

import (
	"errors"
	"strings"
)

const bandTablePrefix = "band"

var ErrInvalidBand = errors.New("band identifier is empty")

// NormalizeBand returns the canonical band identifier: surrounding
// whitespace and one leading case-insensitive "band" prefix are removed,
// so "2A", "band2A" and " Band2A " all yield "2A". Answers and results
// are keyed by this value.
func NormalizeBand(raw string) (string, error) {
	band := strings.TrimSpace(raw)
	if len(band) >= len(bandTablePrefix) && strings.EqualFold(band[:len(bandTablePrefix)], bandTablePrefix) {
		band = strings.TrimSpace(band[len(bandTablePrefix):])
	}
	if band == "" {
		return "", ErrInvalidBand
	}
	return band, nil
}

// BandTableName returns the catalog table name for a band: "band" followed
// by the normalized identifier.
func BandTableName(raw string) (string, error) {
	band, err := NormalizeBand(raw)
	if err != nil {
		return "", err
	}
	return bandTablePrefix + band, nil
}
