package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

func TestEmit_PartialResult(t *testing.T) {
	pe := &walker.PrefixError{Prefix: "b/", Attempts: 4, Err: fmt.Errorf("reset: %w", walker.ErrTransient)}
	stop := fmt.Errorf("%w: %w", walker.ErrCancelled, context.Canceled)
	res := &walker.Result{
		Bucket:         "big-bucket",
		Status:         walker.StatusPartial,
		Keys:           []string{"0/file_0", "100/.keep", "100/file_150"},
		FailedPrefixes: []*walker.PrefixError{pe},
		Cause:          errors.Join(pe, stop),
		Stopped:        stop,
		Stats:          walker.Stats{PrefixesListed: 3, Attempts: 7, Retries: 3, Duration: 1500 * time.Microsecond},
	}

	m, err := match.New(match.Config{ExcludeHidden: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	sum, err := Emit(context.Background(), NewJSONLWriter(&buf, "run", "s3"), res, m)
	require.NoError(t, err)

	recs := decodeLines(t, &buf)
	var types []string
	for _, r := range recs {
		types = append(types, r.Type)
	}
	assert.Equal(t, []string{TypeKey, TypeKey, TypeError, TypeError, TypeSummary}, types)

	var prefixErr, stopErr ErrorRecord
	require.NoError(t, json.Unmarshal(recs[2].Data, &prefixErr))
	require.NoError(t, json.Unmarshal(recs[3].Data, &stopErr))
	assert.Equal(t, ErrCodeTransient, prefixErr.Code)
	assert.Equal(t, "b/", prefixErr.Prefix)
	assert.Equal(t, ErrCodeCancelled, stopErr.Code)

	assert.Equal(t, "partial", sum.Status)
	assert.Equal(t, 3, sum.KeysFound)
	assert.Equal(t, 2, sum.KeysEmitted)
	assert.Equal(t, []string{"b/"}, sum.FailedPrefixes)
	assert.Equal(t, 3, sum.Retries)
	assert.Equal(t, "2ms", sum.DurationHuman)
}

func TestEmit_FailedResult(t *testing.T) {
	cause := fmt.Errorf("listing %q: %w", "", walker.ErrNotFound)
	res := &walker.Result{Bucket: "nope", Status: walker.StatusFailed, Cause: cause}

	var keys, diag bytes.Buffer
	sum, err := Emit(context.Background(), NewTextWriter(&keys, &diag), res, nil)
	require.NoError(t, err)

	assert.Empty(t, keys.String())
	assert.Contains(t, diag.String(), "error NOT_FOUND")
	assert.Equal(t, "failed", sum.Status)
	assert.Equal(t, cause.Error(), sum.Cause)
}

func TestEmit_DefaultMatcherEmitsHidden(t *testing.T) {
	res := &walker.Result{Bucket: "b", Status: walker.StatusComplete, Keys: []string{".hidden", "a", "a/.keep"}}
	m, err := match.New(match.Config{})
	require.NoError(t, err)

	var keys bytes.Buffer
	sum, err := Emit(context.Background(), NewTextWriter(&keys, nil), res, m)
	require.NoError(t, err)
	assert.Equal(t, ".hidden\na\na/.keep\n", keys.String())
	assert.Equal(t, sum.KeysFound, sum.KeysEmitted)
}

func TestEmit_NilMatcherEmitsAll(t *testing.T) {
	res := &walker.Result{Bucket: "b", Status: walker.StatusComplete, Keys: []string{".hidden", "a"}}

	var keys bytes.Buffer
	sum, err := Emit(context.Background(), NewTextWriter(&keys, nil), res, nil)
	require.NoError(t, err)
	assert.Equal(t, ".hidden\na\n", keys.String())
	assert.Equal(t, 2, sum.KeysEmitted)
	assert.Empty(t, sum.Cause)
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidArgument, CodeFor(walker.ErrInvalidArgument))
	assert.Equal(t, ErrCodeUnauthorized, CodeFor(walker.ErrUnauthorized))
	assert.Equal(t, ErrCodePrefixLimit, CodeFor(walker.ErrPrefixLimit))
	assert.Equal(t, ErrCodeTransient, CodeFor(errors.New("boom")))
	assert.Equal(t, ErrCodeInternal, CodeFor(nil))
}
