package geoid

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// FIPSCodes maps state abbreviation to 2-digit FIPS code for all 50 states + DC.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56",
}

var abbrByFIPS map[string]string

func init() {
	abbrByFIPS = make(map[string]string, len(FIPSCodes))
	for abbr, fips := range FIPSCodes {
		abbrByFIPS[fips] = abbr
	}
}

// AbbrFromFIPS returns the state abbreviation for a FIPS code.
func AbbrFromFIPS(fips string) (string, bool) {
	abbr, ok := abbrByFIPS[fips]
	return abbr, ok
}

// StateFIPS resolves a state abbreviation ("NY") or FIPS code ("36") to its
// FIPS code.
func StateFIPS(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if fips, ok := FIPSCodes[s]; ok {
		return fips, nil
	}
	if _, ok := abbrByFIPS[s]; ok {
		return s, nil
	}
	return "", eris.Errorf("geoid: unknown state %q", s)
}

// lower48 lists the conterminous states: every state except Alaska and
// Hawaii. DC is a county-equivalent, not a state, and is not a member.
var lower48 = []string{
	"01", "04", "05", "06", "08", "09", "10", "12", "13", "16",
	"17", "18", "19", "20", "21", "22", "23", "24", "25", "26",
	"27", "28", "29", "30", "31", "32", "33", "34", "35", "36",
	"37", "38", "39", "40", "41", "42", "44", "45", "46", "47",
	"48", "49", "50", "51", "53", "54", "55", "56",
}

// AllowList is a set of 2-digit state codes.
type AllowList map[string]struct{}

// Lower48 returns the allowlist of the 48 conterminous states.
func Lower48() AllowList {
	al := make(AllowList, len(lower48))
	for _, c := range lower48 {
		al[c] = struct{}{}
	}
	return al
}

// NewAllowList builds an allowlist from state codes or abbreviations.
func NewAllowList(codes ...string) (AllowList, error) {
	al := make(AllowList, len(codes))
	for _, c := range codes {
		fips, err := StateFIPS(c)
		if err != nil {
			return nil, err
		}
		al[fips] = struct{}{}
	}
	return al, nil
}

// Contains reports whether code is a member.
func (a AllowList) Contains(code string) bool {
	_, ok := a[code]
	return ok
}

// Codes returns the members in ascending order.
func (a AllowList) Codes() []string {
	out := make([]string, 0, len(a))
	for c := range a {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Filter keeps the items whose region code is in the allowlist.
func Filter[T any](items []T, allow AllowList, code func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if allow.Contains(code(it)) {
			out = append(out, it)
		}
	}
	return out
}
