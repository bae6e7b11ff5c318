// Package cachekey canonicalizes lookup requests into digest-derived cache
// file names. Two semantically equal requests (same 6-decimal coordinates,
// same city name after normalization) always map to the same file name.
package cachekey

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Coordinate returns the cache file name for a coordinate pair. Both values
// are formatted to 6 decimal digits before hashing, so coordinates that
// round identically share one cache slot.
func Coordinate(lat, lon float64) string {
	return digest(fmt.Sprintf("weather_%.6f_%.6f", lat, lon)) + ".json"
}

// City returns the cache file name for a city query. Country, region and
// language are deliberately excluded so all variants of a city query share
// one cache slot.
func City(name string) string {
	return digest(NormalizeCity(name)) + ".json"
}

// NormalizeCity trims the name, lowercases it (ASCII range only) and
// collapses runs of whitespace, '+' and '_' into a single '_' separator,
// stripping any trailing separator. The result is idempotent under repeated
// normalization: "Stockholm", "stockholm " and "STOCKHOLM" all normalize to
// "stockholm", while "Stockholm_Sweden" stays distinct as "stockholm_sweden".
func NormalizeCity(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch c {
		case ' ', '\t', '+', '_':
			if b.Len() == 0 || prevSep {
				continue
			}
			b.WriteByte('_')
			prevSep = true
		default:
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			b.WriteByte(c)
			prevSep = false
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// digest returns a fixed-width (32 hex chars) hash of s, collision-resistant
// enough to serve as a cache file name.
func digest(s string) string {
	h1, h2 := murmur3.Sum128([]byte(s))
	return fmt.Sprintf("%016x%016x", h1, h2)
}
