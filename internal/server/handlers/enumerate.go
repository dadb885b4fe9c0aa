package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/bucketwalk/internal/errors"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

// maxRequestBody bounds the enumeration request body.
const maxRequestBody = 1 << 20

// Enumerator runs one enumeration. *walker.Walker implements it.
type Enumerator interface {
	Enumerate(ctx context.Context, bucket, root string) (*walker.Result, error)
}

// EnumerateRequest is the body of POST /v1/enumerations.
type EnumerateRequest struct {
	Bucket string `json:"bucket"`
	Root   string `json:"root,omitempty"`
}

// FailedPrefix describes a prefix skipped after its retries ran out.
type FailedPrefix struct {
	Prefix   string `json:"prefix"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// EnumerateStats mirrors walker.Stats.
type EnumerateStats struct {
	PrefixesListed int    `json:"prefixes_listed"`
	PrefixesFailed int    `json:"prefixes_failed"`
	Attempts       int    `json:"attempts"`
	Retries        int    `json:"retries"`
	Revisits       int    `json:"revisits"`
	DurationNs     int64  `json:"duration_ns"`
	Duration       string `json:"duration"`
}

// EnumerateResponse is the body of a completed or partial enumeration.
type EnumerateResponse struct {
	RunID          string         `json:"run_id"`
	Bucket         string         `json:"bucket"`
	Root           string         `json:"root"`
	Status         walker.Status  `json:"status"`
	Keys           []string       `json:"keys"`
	FailedPrefixes []FailedPrefix `json:"failed_prefixes,omitempty"`
	Cause          string         `json:"cause,omitempty"`
	Stats          EnumerateStats `json:"stats"`
}

// EnumerateHandler returns the POST /v1/enumerations handler.
//
// Complete and partial runs respond 200 with the result. Failed runs map
// their cause to 400 or 404. A nil enumerator responds 503.
func EnumerateHandler(e Enumerator, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if e == nil {
			apperrors.RespondWithError(w, http.StatusServiceUnavailable, apperrors.CodeServiceUnavailable,
				"enumeration is not configured", nil)
			return
		}

		var req EnumerateRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			apperrors.RespondWithError(w, http.StatusBadRequest, apperrors.CodeInvalidRequest,
				"invalid request body: "+err.Error(), nil)
			return
		}

		runID := uuid.NewString()
		log := logger.With(zap.String("run_id", runID), zap.String("bucket", req.Bucket), zap.String("root", req.Root))
		log.Info("enumeration started")

		res, err := e.Enumerate(r.Context(), req.Bucket, req.Root)
		if err != nil {
			status, code := failureStatus(err)
			log.Warn("enumeration failed", zap.Error(err))
			apperrors.RespondWithError(w, status, code, err.Error(), map[string]any{"run_id": runID})
			return
		}

		log.Info("enumeration finished",
			zap.String("status", string(res.Status)),
			zap.Int("keys", len(res.Keys)),
			zap.Duration("elapsed", res.Stats.Duration),
		)
		apperrors.WriteJSON(w, http.StatusOK, newEnumerateResponse(runID, res))
	}
}

func failureStatus(err error) (int, string) {
	switch walker.Classify(err) {
	case walker.KindInvalidArgument:
		return http.StatusBadRequest, apperrors.CodeInvalidArgument
	case walker.KindNotFound:
		return http.StatusNotFound, apperrors.CodeNotFound
	case walker.KindCancelled:
		return http.StatusServiceUnavailable, apperrors.CodeServiceUnavailable
	default:
		return http.StatusInternalServerError, apperrors.CodeInternal
	}
}

func newEnumerateResponse(runID string, res *walker.Result) EnumerateResponse {
	resp := EnumerateResponse{
		RunID:  runID,
		Bucket: res.Bucket,
		Root:   res.Root,
		Status: res.Status,
		Keys:   res.Keys,
		Stats: EnumerateStats{
			PrefixesListed: res.Stats.PrefixesListed,
			PrefixesFailed: res.Stats.PrefixesFailed,
			Attempts:       res.Stats.Attempts,
			Retries:        res.Stats.Retries,
			Revisits:       res.Stats.Revisits,
			DurationNs:     int64(res.Stats.Duration),
			Duration:       res.Stats.Duration.Round(time.Millisecond).String(),
		},
	}
	if resp.Keys == nil {
		resp.Keys = []string{}
	}
	for _, fp := range res.FailedPrefixes {
		f := FailedPrefix{Prefix: fp.Prefix, Attempts: fp.Attempts}
		if fp.Err != nil {
			f.Error = fp.Err.Error()
		}
		resp.FailedPrefixes = append(resp.FailedPrefixes, f)
	}
	if res.Cause != nil {
		resp.Cause = strings.TrimSpace(res.Cause.Error())
	}
	return resp
}
