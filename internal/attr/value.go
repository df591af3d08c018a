package attr

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// suppressed lists the BEA and Census cell markers for withheld or
// inapplicable estimates.
var suppressed = map[string]bool{
	"":     true,
	"(D)":  true,
	"(NA)": true,
	"(NM)": true,
	"(X)":  true,
	"(L)":  true,
	"N":    true,
	"-":    true,
	"***":  true,
}

// ParseValue parses a numeric cell. Thousands separators are removed and
// suppression markers yield NaN with no error.
func ParseValue(raw string) (float64, error) {
	s := strings.TrimSpace(strings.Trim(raw, `"`))
	if suppressed[s] {
		return math.NaN(), nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "attr: parse value %q", raw)
	}
	return v, nil
}
