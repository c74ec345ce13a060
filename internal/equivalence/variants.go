package equivalence

import "strings"

// ExpandVariants returns the spellings of an OEM number worth searching for:
// the original, its uppercase alphanumeric form and, when the original contains
// them, the forms without dots, spaces or dashes. Duplicates and empty strings
// are removed; order is stable.
func ExpandVariants(oem string) []string {
	candidates := []string{oem, NormalizeOEM(oem)}
	for _, sep := range []string{".", " ", "-"} {
		if strings.Contains(oem, sep) {
			candidates = append(candidates, strings.ReplaceAll(oem, sep, ""))
		}
	}

	variants := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		variants = append(variants, c)
	}
	return variants
}

// NormalizeOEM uppercases s and keeps only A-Z and 0-9.
func NormalizeOEM(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
