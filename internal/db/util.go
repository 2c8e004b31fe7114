package db

import (
	"regexp"
	"strings"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func dedupeStrings(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// validIdentifier reports whether name is safe to splice into SQL as a table name.
func validIdentifier(name string) bool {
	return len(name) <= 128 && identifierPattern.MatchString(name)
}

// quoteIdentifier must only be called with names accepted by validIdentifier.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}
