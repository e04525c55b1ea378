package workspace

import "strings"

// NormalizeEmails trims each entry and drops blanks, preserving input
// order. Duplicates are kept: the set stored is exactly what was
// submitted.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		trimmed := strings.TrimSpace(e)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
