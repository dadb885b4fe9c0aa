package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty config matches all", cfg: Config{}},
		{name: "includes and excludes", cfg: Config{Includes: []string{"100/**"}, Excludes: []string{"**/*.tmp"}}},
		{name: "invalid include", cfg: Config{Includes: []string{"[oops"}}, wantErr: true},
		{name: "invalid exclude", cfg: Config{Excludes: []string{"{a,b"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPattern))
				var pe *PatternError
				assert.ErrorAs(t, err, &pe)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		key      string
		expected bool
	}{
		{"default matches plain key", Config{}, "0/file_0", true},
		{"default reports dot segments", Config{}, "100/.keep", true},
		{"default reports dot directory", Config{}, ".git/config", true},
		{"hidden excluded", Config{ExcludeHidden: true}, "100/.keep", false},
		{"hidden excluded keeps plain key", Config{ExcludeHidden: true}, "100/file_1", true},
		{"hidden excluded with include", Config{Includes: []string{"100/**"}, ExcludeHidden: true}, "100/.keep", false},
		{"include group", Config{Includes: []string{"100/**"}}, "100/file_150", true},
		{"include other group", Config{Includes: []string{"100/**"}}, "0/file_0", false},
		{"single star stays in segment", Config{Includes: []string{"*/file_1"}}, "100/file_1", true},
		{"single star does not cross", Config{Includes: []string{"*"}}, "100/file_1", false},
		{"exclude wins", Config{Includes: []string{"**"}, Excludes: []string{"**/file_1*"}}, "100/file_150", false},
		{"exclude only", Config{Excludes: []string{"0/**"}}, "0/file_0", false},
		{"exclude only passes others", Config{Excludes: []string{"0/**"}}, "100/file_100", true},
		{"any include", Config{Includes: []string{"a/**", "100/**"}}, "100/file_100", true},
		{"backslash key is literal", Config{Includes: []string{"data/**"}}, `data\file`, false},
		{"windows pattern", Config{Includes: []string{`100\file_1*`}}, "100/file_100", true},
		{"braces", Config{Includes: []string{"{0,100}/file_1*"}}, "100/file_150", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Match(tt.key))
		})
	}
}

func TestMatcher_CanMatchUnder(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		root     string
		expected bool
	}{
		{"no includes", nil, "100/", true},
		{"empty root", []string{"100/**"}, "", true},
		{"root inside include", []string{"100/**"}, "100/sub/", true},
		{"include inside root", []string{"100/sub/**"}, "100/", true},
		{"disjoint", []string{"100/**"}, "200/", false},
		{"leading wildcard", []string{"**/*.csv"}, "200/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{Includes: tt.includes})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.CanMatchUnder(tt.root))
		})
	}
}

func TestMatcher_IncludePatterns(t *testing.T) {
	m, err := New(Config{Includes: []string{`a\**`, "b/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{`a\**`, "b/**"}, m.IncludePatterns())

	all, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{MatchAll}, all.IncludePatterns())
}

func TestPatternError(t *testing.T) {
	err := &PatternError{Pattern: "[oops", Err: ErrInvalidPattern}
	assert.Equal(t, "pattern [oops: invalid glob pattern", err.Error())
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func BenchmarkMatcher_Match(b *testing.B) {
	m, _ := New(Config{
		Includes: []string{"100/**", "200/**"},
		Excludes: []string{"**/_tmp/**"},
	})

	key := "100/sub/file_150"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match(key)
	}
}
