package output

import (
	"context"
	"time"

	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

// Emit writes an enumeration result: every key accepted by m (all keys when
// m is nil), an error record per failed prefix, one for the reason the run
// stopped or failed, and a closing summary. It returns the summary written.
//
// Emit honors ctx; callers reporting a cancelled run should pass a context
// that is still live.
func Emit(ctx context.Context, w Writer, res *walker.Result, m *match.Matcher) (*SummaryRecord, error) {
	emitted := 0
	for _, key := range res.Keys {
		if m != nil && !m.Match(key) {
			continue
		}
		if err := w.WriteKey(ctx, &KeyRecord{Bucket: res.Bucket, Key: key}); err != nil {
			return nil, err
		}
		emitted++
	}

	for _, pe := range res.FailedPrefixes {
		rec := &ErrorRecord{
			Code:     CodeFor(pe.Err),
			Message:  pe.Err.Error(),
			Prefix:   pe.Prefix,
			Attempts: pe.Attempts,
		}
		if err := w.WriteError(ctx, rec); err != nil {
			return nil, err
		}
	}

	stop := res.Stopped
	if res.Status == walker.StatusFailed {
		stop = res.Cause
	}
	if stop != nil {
		if err := w.WriteError(ctx, &ErrorRecord{Code: CodeFor(stop), Message: stop.Error()}); err != nil {
			return nil, err
		}
	}

	sum := NewSummary(res, emitted)
	if err := w.WriteSummary(ctx, sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// NewSummary builds the summary payload for res.
func NewSummary(res *walker.Result, emitted int) *SummaryRecord {
	sum := &SummaryRecord{
		Bucket:         res.Bucket,
		Root:           res.Root,
		Status:         string(res.Status),
		KeysFound:      len(res.Keys),
		KeysEmitted:    emitted,
		PrefixesListed: res.Stats.PrefixesListed,
		Attempts:       res.Stats.Attempts,
		Retries:        res.Stats.Retries,
		Duration:       res.Stats.Duration,
		DurationHuman:  res.Stats.Duration.Round(time.Millisecond).String(),
	}
	for _, pe := range res.FailedPrefixes {
		sum.FailedPrefixes = append(sum.FailedPrefixes, pe.Prefix)
	}
	if res.Cause != nil {
		sum.Cause = res.Cause.Error()
	}
	return sum
}

// CodeFor maps an enumeration error to an ErrorRecord code.
func CodeFor(err error) string {
	switch walker.Classify(err) {
	case walker.KindInvalidArgument:
		return ErrCodeInvalidArgument
	case walker.KindNotFound:
		return ErrCodeNotFound
	case walker.KindTransient:
		return ErrCodeTransient
	case walker.KindUnauthorized:
		return ErrCodeUnauthorized
	case walker.KindCancelled:
		return ErrCodeCancelled
	case walker.KindPrefixLimit:
		return ErrCodePrefixLimit
	default:
		return ErrCodeInternal
	}
}
