// Package output writes enumeration results as JSONL records or plain text.
//
// JSONL output is a stream of typed envelopes: one key record per reported
// object key, one error record per failed prefix or stop cause, and a final
// summary record. Each line can be parsed on its own.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record types follow the pattern bucketwalk.<type>.v<version>.
const (
	TypeKey     = "bucketwalk.key.v1"
	TypeError   = "bucketwalk.error.v1"
	TypeSummary = "bucketwalk.summary.v1"
)

// Record is the envelope for every JSONL line.
type Record struct {
	// Type identifies the payload type (e.g., "bucketwalk.key.v1").
	Type string `json:"type"`

	// TS is when the record was written.
	TS time.Time `json:"ts"`

	// RunID correlates all records of one enumeration.
	RunID string `json:"run_id"`

	// Provider identifies the storage provider (e.g., "s3").
	Provider string `json:"provider"`

	Data json.RawMessage `json:"data"`
}

// KeyRecord is the payload for one discovered object key.
type KeyRecord struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ErrorRecord is the payload for a failed prefix or a run-level failure.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Prefix is the prefix whose listing failed, if any.
	Prefix string `json:"prefix,omitempty"`

	// Attempts is the number of listing attempts made for Prefix.
	Attempts int `json:"attempts,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeTransient       = "TRANSIENT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodePrefixLimit     = "PREFIX_LIMIT"
	ErrCodeInternal        = "INTERNAL"
)

// SummaryRecord is the payload of the final record of a run.
type SummaryRecord struct {
	Bucket string `json:"bucket"`
	Root   string `json:"root"`

	// Status is complete, partial or failed.
	Status string `json:"status"`

	// KeysFound is the number of unique keys discovered.
	KeysFound int `json:"keys_found"`

	// KeysEmitted is the number of keys written after filtering.
	KeysEmitted int `json:"keys_emitted"`

	FailedPrefixes []string `json:"failed_prefixes,omitempty"`
	Cause          string   `json:"cause,omitempty"`

	PrefixesListed int `json:"prefixes_listed"`
	Attempts       int `json:"attempts"`
	Retries        int `json:"retries"`

	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // "marshal_data", "marshal_record" or "write"
	Err error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
