package parser

import (
	"encoding/json"
)

// LargestFromManifest parses a size manifest such as Amazon's
// data-a-dynamic-image attribute ({"url":[width,height],...}) and returns the
// URL with the largest area. Ties go to the lexicographically smallest URL.
// An invalid or empty manifest yields "".
func LargestFromManifest(raw string) string {
	var manifest map[string][]float64
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		return ""
	}

	var best string
	bestArea := -1.0
	for u, dims := range manifest {
		if u == "" || len(dims) < 2 {
			continue
		}
		area := dims[0] * dims[1]
		if area > bestArea || (area == bestArea && u < best) {
			best = u
			bestArea = area
		}
	}
	return best
}
