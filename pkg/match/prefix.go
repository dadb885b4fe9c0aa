package match

import (
	"sort"
	"strings"
)

// DerivePrefix returns the literal directory prefix of a pattern: everything
// up to the last '/' before the first unescaped metacharacter, unescaped.
// A pattern without metacharacters is its own prefix.
//
//	"data/2024/**/*.csv" → "data/2024/"
//	"data/file\*.txt"    → "data/file*.txt"
//	"**/*.json"          → ""
func DerivePrefix(pattern string) string {
	pattern = NormalizePattern(pattern)

	meta := firstMeta(pattern)
	if meta < 0 {
		return unescape(pattern)
	}

	slash := strings.LastIndexByte(pattern[:meta], '/')
	if slash < 0 {
		return ""
	}
	return unescape(pattern[:slash+1])
}

// DerivePrefixes returns the sorted prefixes of patterns with any prefix that
// is covered by a shorter one removed.
func DerivePrefixes(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}

	all := make([]string, 0, len(patterns))
	for _, p := range patterns {
		prefix := DerivePrefix(p)
		if prefix == "" {
			return []string{""}
		}
		all = append(all, prefix)
	}

	sort.Slice(all, func(i, j int) bool { return len(all[i]) < len(all[j]) })
	var out []string
	for _, candidate := range all {
		covered := false
		for _, kept := range out {
			if strings.HasPrefix(candidate, kept) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}

func firstMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
