// Package pyver provides helpers for working with Python version strings:
// concrete versions like "3.11.4", prerelease names like "3.13.0rc2", and
// symbolic git references requested as "ref:<name>".
package pyver

import (
	"sort"
	"strconv"
	"strings"
)

const refPrefix = "ref:"

// IsRef reports whether the requested version is a symbolic git reference
// rather than a concrete version string.
func IsRef(version string) bool {
	return strings.HasPrefix(version, refPrefix)
}

// RefName returns the git reference encoded in a ref request, or "" when the
// version is not a reference.
func RefName(version string) string {
	if !IsRef(version) {
		return ""
	}
	return strings.TrimPrefix(version, refPrefix)
}

// LeadsDigit reports whether the version string begins with an ASCII digit.
// Release versions do; special builds (pypy, miniconda, stackless, dev names)
// do not.
func LeadsDigit(version string) bool {
	if version == "" {
		return false
	}
	return version[0] >= '0' && version[0] <= '9'
}

// Compare orders two version strings by their numeric components ("3.9.1" <
// "3.10.0"). Non-numeric runs act as separators only. Strings with equal
// numeric parts compare lexically as a final tie-break so the order is total.
func Compare(a, b string) int {
	ap := numericParts(a)
	bp := numericParts(b)
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if ap[i] != bp[i] {
			if ap[i] < bp[i] {
				return -1
			}
			return 1
		}
	}
	if len(ap) != len(bp) {
		if len(ap) < len(bp) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortInstalled orders versions numerically ascending, oldest release first.
func SortInstalled(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// ResolvePrefix resolves a possibly-partial version against an ordered list
// of known versions. An exact match wins. Otherwise the last entry whose
// leading components match the prefix is returned, so a list ordered
// oldest-first resolves "3.12" to the newest 3.12 release. Returns "" when
// nothing matches.
func ResolvePrefix(versions []string, prefix string) string {
	match := ""
	for _, v := range versions {
		if v == prefix {
			return v
		}
		if matchesPrefix(v, prefix) {
			match = v
		}
	}
	return match
}

// matchesPrefix reports whether version starts with prefix on a component
// boundary: "3.1" matches "3.1.4" but not "3.11.0".
func matchesPrefix(version, prefix string) bool {
	if !strings.HasPrefix(version, prefix) {
		return false
	}
	rest := version[len(prefix):]
	return rest == "" || rest[0] == '.'
}

func numericParts(version string) []int {
	var parts []int
	var current strings.Builder
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	if current.Len() > 0 {
		val, _ := strconv.Atoi(current.String())
		parts = append(parts, val)
	}
	return parts
}
