// Package jobfile loads enumeration job definitions from YAML or JSON.
//
// A job file names the bucket and how to reach it, tunes the walk, filters
// the reported keys and picks an output. Unknown fields are rejected.
//
// Example (YAML):
//
//	version: "1.0"
//	connection:
//	  provider: s3
//	  bucket: big-bucket
//	  endpoint: http://localhost:9000
//	  path_style: true
//	walk:
//	  concurrency: 8
//	  max_attempts: 5
//	  call_timeout: 15s
//	match:
//	  includes:
//	    - "100/**"
//	output:
//	  format: jsonl
//	  destination: file:/tmp/keys.jsonl
package jobfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

// Job is a validated job definition.
type Job struct {
	// Schema is an optional schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version must be "1.0".
	Version string `json:"version" yaml:"version"`

	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Walk       WalkConfig       `json:"walk,omitempty" yaml:"walk,omitempty"`
	Match      MatchConfig      `json:"match,omitempty" yaml:"match,omitempty"`
	Output     OutputConfig     `json:"output,omitempty" yaml:"output,omitempty"`
}

// ConnectionConfig selects the store and bucket.
type ConnectionConfig struct {
	// Provider is "s3", "minio" or "file".
	Provider string `json:"provider" yaml:"provider"`

	Bucket string `json:"bucket" yaml:"bucket"`

	// Root is the starting prefix. Empty walks the whole bucket.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Profile   string `json:"profile,omitempty" yaml:"profile,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`

	// RootDir is the store directory for the file provider.
	RootDir string `json:"root_dir,omitempty" yaml:"root_dir,omitempty"`
}

// WalkConfig tunes the walker. Zero values keep the caller's defaults.
// Durations use Go syntax ("250ms", "30s").
type WalkConfig struct {
	Concurrency    int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	MaxAttempts    int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialBackoff string  `json:"initial_backoff,omitempty" yaml:"initial_backoff,omitempty"`
	MaxBackoff     string  `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty"`
	CallTimeout    string  `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
	RateLimit      float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	MaxPrefixes    int     `json:"max_prefixes,omitempty" yaml:"max_prefixes,omitempty"`
}

// MatchConfig filters the reported keys.
type MatchConfig struct {
	Includes      []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	Excludes      []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	ExcludeHidden bool     `json:"exclude_hidden,omitempty" yaml:"exclude_hidden,omitempty"`
}

// OutputConfig selects format and destination.
type OutputConfig struct {
	// Format is "jsonl" or "text". Default: "jsonl".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Destination is "stdout" or "file:/path". Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// Defaults for optional fields.
const (
	DefaultVersion     = "1.0"
	DefaultFormat      = "jsonl"
	DefaultDestination = "stdout"
)

// ApplyDefaults fills in optional fields.
func (j *Job) ApplyDefaults() {
	if j.Version == "" {
		j.Version = DefaultVersion
	}
	if j.Output.Format == "" {
		j.Output.Format = DefaultFormat
	}
	if j.Output.Destination == "" {
		j.Output.Destination = DefaultDestination
	}
}

// WalkerConfig overlays the job's walk settings on base.
func (j *Job) WalkerConfig(base walker.Config) (walker.Config, error) {
	cfg := base
	w := j.Walk

	if w.Concurrency > 0 {
		cfg.Concurrency = w.Concurrency
	}
	if w.MaxAttempts > 0 {
		cfg.MaxAttempts = w.MaxAttempts
	}
	if w.RateLimit > 0 {
		cfg.RateLimit = w.RateLimit
	}
	if w.MaxPrefixes > 0 {
		cfg.MaxPrefixes = w.MaxPrefixes
	}

	for _, d := range []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"walk.initial_backoff", w.InitialBackoff, &cfg.InitialBackoff},
		{"walk.max_backoff", w.MaxBackoff, &cfg.MaxBackoff},
		{"walk.call_timeout", w.CallTimeout, &cfg.CallTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return base, fmt.Errorf("%s: %w", d.field, err)
		}
		*d.dst = parsed
	}
	return cfg, nil
}

// MatcherConfig returns the key filter configuration.
func (j *Job) MatcherConfig() match.Config {
	return match.Config{
		Includes:      j.Match.Includes,
		Excludes:      j.Match.Excludes,
		ExcludeHidden: j.Match.ExcludeHidden,
	}
}

// OutputPath returns the file path for a "file:" destination, or "" for stdout.
func (o OutputConfig) OutputPath() string {
	if path, ok := strings.CutPrefix(o.Destination, "file:"); ok {
		return path
	}
	return ""
}
