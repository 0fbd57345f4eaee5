package dist

import (
	"strconv"
	"strings"
)

// tokenizeVersion splits a version string into its dot- and dash-separated
// components, e.g. "1.10-beta" into ["1" "10" "beta"].
func tokenizeVersion(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-'
	})
}

func numericToken(tok string) (int64, bool) {
	if tok == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareVersions imposes a total order on version strings: corresponding
// tokens compare numerically when both are numeric and lexicographically
// otherwise. When one version runs out of tokens, the longer one wins if its
// next token is numeric (1.0 < 1.0.1), but loses if it is alphabetic, so that
// pre-release suffixes sort below the release (1.0 > 1.0-beta).
func CompareVersions(a, b string) int {
	at, bt := tokenizeVersion(a), tokenizeVersion(b)
	for i := 0; ; i++ {
		if i >= len(at) && i >= len(bt) {
			return 0
		}
		if i >= len(at) {
			return -extraTokenSign(bt[i])
		}
		if i >= len(bt) {
			return extraTokenSign(at[i])
		}
		an, aok := numericToken(at[i])
		bn, bok := numericToken(bt[i])
		if aok && bok {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(at[i], bt[i]); c != 0 {
			return c
		}
	}
}

// extraTokenSign ranks the version carrying an extra token against the one
// that ran out: a numeric continuation extends it upwards ("1.0.1" > "1.0"),
// an alphabetic one marks a pre-release below it ("1.0-beta" < "1.0").
func extraTokenSign(tok string) int {
	if _, ok := numericToken(tok); ok {
		return 1
	}
	return -1
}

// VersionEqual reports componentwise equality after tokenization, so
// "1.0" == "1-0" but "1.0" != "1.0.0".
func VersionEqual(a, b string) bool {
	at, bt := tokenizeVersion(a), tokenizeVersion(b)
	if len(at) != len(bt) {
		return false
	}
	for i := range at {
		an, aok := numericToken(at[i])
		bn, bok := numericToken(bt[i])
		if aok && bok {
			if an != bn {
				return false
			}
			continue
		}
		if at[i] != bt[i] {
			return false
		}
	}
	return true
}
