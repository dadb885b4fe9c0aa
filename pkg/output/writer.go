package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Format names accepted by New.
const (
	FormatJSONL = "jsonl"
	FormatText  = "text"
)

// Writer emits enumeration records.
//
// Implementations must be safe for concurrent use.
type Writer interface {
	WriteKey(ctx context.Context, rec *KeyRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error
	WriteSummary(ctx context.Context, rec *SummaryRecord) error

	// Close marks the writer closed. The underlying io.Writer is not closed.
	Close() error
}

// New returns a writer for format. Text output writes keys to w and errors
// and the summary to diag; a nil diag discards them.
func New(format string, w, diag io.Writer, runID, provider string) (Writer, error) {
	switch format {
	case "", FormatJSONL:
		return NewJSONLWriter(w, runID, provider), nil
	case FormatText:
		return NewTextWriter(w, diag), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatJSONL, FormatText)
	}
}

// JSONLWriter writes records as newline-delimited JSON.
//
// Writes are serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w        io.Writer
	runID    string
	provider string

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a JSONL writer stamping every envelope with runID
// and provider.
func NewJSONLWriter(w io.Writer, runID, provider string) *JSONLWriter {
	return &JSONLWriter{w: w, runID: runID, provider: provider}
}

func (jw *JSONLWriter) WriteKey(ctx context.Context, rec *KeyRecord) error {
	return jw.writeRecord(ctx, TypeKey, rec)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, rec *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, rec)
}

// Close marks the writer as closed.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	line, err := json.Marshal(Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		RunID:    jw.runID,
		Provider: jw.provider,
		Data:     payload,
	})
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	if err := writeAll(jw.w, append(line, '\n')); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// TextWriter writes one key per line. Errors and the summary go to a
// separate diagnostic stream so the key stream stays pipe-friendly.
type TextWriter struct {
	w    io.Writer
	diag io.Writer

	mu     sync.Mutex
	closed bool
}

// NewTextWriter creates a text writer. A nil diag discards diagnostics.
func NewTextWriter(w, diag io.Writer) *TextWriter {
	if diag == nil {
		diag = io.Discard
	}
	return &TextWriter{w: w, diag: diag}
}

func (tw *TextWriter) WriteKey(ctx context.Context, rec *KeyRecord) error {
	return tw.write(ctx, tw.w, rec.Key+"\n")
}

func (tw *TextWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	line := fmt.Sprintf("error %s: %s\n", rec.Code, rec.Message)
	if rec.Prefix != "" {
		line = fmt.Sprintf("error %s: prefix %q after %d attempt(s): %s\n", rec.Code, rec.Prefix, rec.Attempts, rec.Message)
	}
	return tw.write(ctx, tw.diag, line)
}

func (tw *TextWriter) WriteSummary(ctx context.Context, rec *SummaryRecord) error {
	line := fmt.Sprintf("%s: %d keys (%d emitted), %d prefixes listed, %d failed, %d retries in %s\n",
		rec.Status, rec.KeysFound, rec.KeysEmitted, rec.PrefixesListed, len(rec.FailedPrefixes), rec.Retries, rec.DurationHuman)
	return tw.write(ctx, tw.diag, line)
}

func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.closed = true
	return nil
}

func (tw *TextWriter) write(ctx context.Context, w io.Writer, s string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrWriterClosed
	}
	if err := writeAll(w, []byte(s)); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeAll writes all of p, looping over short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var (
	_ Writer = (*JSONLWriter)(nil)
	_ Writer = (*TextWriter)(nil)
)
