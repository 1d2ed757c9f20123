package datastore

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxColumnName is the longest column name produced by ColumnName.
// MySQL limits identifiers to 64 characters.
const MaxColumnName = 64

// ColumnName turns a CSV header into a column name: accents folded,
// lowercased, runs of other characters replaced by "_", a leading digit
// prefixed with "_", truncated to MaxColumnName.
func ColumnName(header string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), header)
	if err != nil {
		folded = header
	}

	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}

	name := strings.Trim(sb.String(), "_")
	if name == "" {
		name = "column"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	if len(name) > MaxColumnName {
		name = name[:MaxColumnName]
	}
	return name
}

// ColumnNames sanitizes every header and makes the result unique by
// appending _1, _2, ... to repeats. The row id column name is reserved.
func ColumnNames(headers []string) []string {
	seen := map[string]bool{RowIDColumn: true}
	names := make([]string, len(headers))
	for i, h := range headers {
		base := ColumnName(h)
		name := base
		for n := 1; seen[name]; n++ {
			suffix := "_" + strconv.Itoa(n)
			trimmed := base
			if len(trimmed)+len(suffix) > MaxColumnName {
				trimmed = trimmed[:MaxColumnName-len(suffix)]
			}
			name = trimmed + suffix
		}
		seen[name] = true
		names[i] = name
	}
	return names
}
