package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var out []Record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "line: %s", line)
		out = append(out, rec)
	}
	return out
}

func TestJSONLWriter_WriteKey(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "s3")

	require.NoError(t, w.WriteKey(context.Background(), &KeyRecord{Bucket: "big-bucket", Key: "100/file_150"}))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, TypeKey, recs[0].Type)
	assert.Equal(t, "run-123", recs[0].RunID)
	assert.Equal(t, "s3", recs[0].Provider)
	assert.False(t, recs[0].TS.IsZero())

	var key KeyRecord
	require.NoError(t, json.Unmarshal(recs[0].Data, &key))
	assert.Equal(t, KeyRecord{Bucket: "big-bucket", Key: "100/file_150"}, key)
}

func TestJSONLWriter_WriteErrorAndSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")
	ctx := context.Background()

	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeTransient, Message: "slow down", Prefix: "b/", Attempts: 4}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Status: "partial", KeysFound: 3, FailedPrefixes: []string{"b/"}}))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, TypeError, recs[0].Type)
	assert.Equal(t, TypeSummary, recs[1].Type)

	var e ErrorRecord
	require.NoError(t, json.Unmarshal(recs[0].Data, &e))
	assert.Equal(t, "b/", e.Prefix)
	assert.Equal(t, 4, e.Attempts)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(recs[1].Data, &raw))
	assert.Equal(t, "partial", raw["status"])
	assert.Equal(t, float64(3), raw["keys_found"])
	assert.Equal(t, []any{"b/"}, raw["failed_prefixes"])
}

func TestErrorRecord_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&ErrorRecord{Code: ErrCodeCancelled, Message: "stopped"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "prefix")
	assert.NotContains(t, string(data), "attempts")
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run", "s3")

	require.NoError(t, w.Close())
	err := w.WriteKey(context.Background(), &KeyRecord{Key: "k"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run", "s3")

	const writers, perWriter = 8, 100
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_ = w.WriteKey(context.Background(), &KeyRecord{Bucket: "b", Key: "k"})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), writers*perWriter)
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run", "s3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.WriteKey(ctx, &KeyRecord{Key: "k"}), context.Canceled)
	assert.Empty(t, buf.String())
}

type failingWriter struct{ err error }

func (f *failingWriter) Write([]byte) (int, error) { return 0, f.err }

type shortWriter struct {
	buf  bytes.Buffer
	step int
}

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > s.step {
		p = p[:s.step]
	}
	return s.buf.Write(p)
}

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestJSONLWriter_WriteFailures(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		w := NewJSONLWriter(&failingWriter{err: errors.New("disk full")}, "run", "s3")
		err := w.WriteKey(context.Background(), &KeyRecord{Key: "k"})
		var we *WriteError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, "write", we.Op)
	})

	t.Run("short writes complete the line", func(t *testing.T) {
		sw := &shortWriter{step: 7}
		w := NewJSONLWriter(sw, "run", "s3")
		require.NoError(t, w.WriteKey(context.Background(), &KeyRecord{Key: "100/file_150"}))
		assert.Len(t, decodeLines(t, &sw.buf), 1)
	})

	t.Run("zero write", func(t *testing.T) {
		w := NewJSONLWriter(zeroWriter{}, "run", "s3")
		assert.ErrorIs(t, w.WriteKey(context.Background(), &KeyRecord{Key: "k"}), io.ErrShortWrite)
	})
}

func TestTextWriter(t *testing.T) {
	var keys, diag bytes.Buffer
	w := NewTextWriter(&keys, &diag)
	ctx := context.Background()

	require.NoError(t, w.WriteKey(ctx, &KeyRecord{Key: "0/file_0"}))
	require.NoError(t, w.WriteKey(ctx, &KeyRecord{Key: "100/file_150"}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeTransient, Message: "timeout", Prefix: "b/", Attempts: 2}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeCancelled, Message: "interrupted"}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Status: "partial", KeysFound: 2, KeysEmitted: 2, DurationHuman: "1ms"}))

	assert.Equal(t, "0/file_0\n100/file_150\n", keys.String())
	assert.Contains(t, diag.String(), `error TRANSIENT: prefix "b/" after 2 attempt(s): timeout`)
	assert.Contains(t, diag.String(), "error CANCELLED: interrupted")
	assert.Contains(t, diag.String(), "partial: 2 keys (2 emitted)")

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteKey(ctx, &KeyRecord{Key: "x"}), ErrWriterClosed)
}

func TestTextWriter_NilDiag(t *testing.T) {
	var keys bytes.Buffer
	w := NewTextWriter(&keys, nil)
	require.NoError(t, w.WriteError(context.Background(), &ErrorRecord{Code: ErrCodeInternal, Message: "x"}))
	assert.Empty(t, keys.String())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	w, err := New("", &buf, nil, "run", "s3")
	require.NoError(t, err)
	assert.IsType(t, &JSONLWriter{}, w)

	w, err = New(FormatText, &buf, nil, "run", "s3")
	require.NoError(t, err)
	assert.IsType(t, &TextWriter{}, w)

	_, err = New("csv", &buf, nil, "run", "s3")
	assert.ErrorContains(t, err, `unknown output format "csv"`)
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal_data", Err: underlying}

	assert.Equal(t, "output: marshal_data: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}
