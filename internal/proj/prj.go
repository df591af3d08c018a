package proj

import (
	"os"
	"strings"
)

// DetectSRID guesses the EPSG code from a shapefile .prj sidecar (ESRI WKT).
// Returns 0 when the file is missing or the CRS is not recognized.
func DetectSRID(prjPath string) int {
	data, err := os.ReadFile(prjPath)
	if err != nil {
		return 0
	}
	return sridFromWKT(string(data))
}

func sridFromWKT(wkt string) int {
	w := strings.ToLower(wkt)
	switch {
	case strings.HasPrefix(w, "projcs"):
		switch {
		case strings.Contains(w, "albers") && strings.Contains(w, "north_american_1983"):
			return ConusAlbers
		case strings.Contains(w, "mercator_auxiliary_sphere") || strings.Contains(w, "pseudo-mercator"):
			return WebMercator
		}
	case strings.HasPrefix(w, "geogcs"):
		switch {
		case strings.Contains(w, "north_american_1983"):
			return NAD83
		case strings.Contains(w, "wgs_1984") || strings.Contains(w, "wgs 84"):
			return WGS84
		}
	}
	return 0
}
