// Package match filters enumerated object keys with doublestar glob patterns.
package match

import "strings"

// metachars may follow a backslash to escape them in a pattern.
const metachars = `*?[]{}\`

// NormalizePattern rewrites unescaped backslashes as '/' so patterns written
// with Windows separators work against object keys. Escapes of glob
// metacharacters (\*, \?, \[ ...) are kept.
//
//	`logs\2024\day*.gz` → `logs/2024/day*.gz`
//	`logs/file\*.gz`     → `logs/file\*.gz`
func NormalizePattern(pattern string) string {
	if !strings.ContainsRune(pattern, '\\') {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(pattern) && strings.IndexByte(metachars, pattern[i+1]) >= 0 {
			b.WriteByte('\\')
			b.WriteByte(pattern[i+1])
			i++
			continue
		}
		b.WriteByte('/')
	}
	return b.String()
}

// IsHidden reports whether any '/'-separated segment of key starts with '.'.
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
