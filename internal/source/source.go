// Package source contains the public data sources the collector fetches from.
package source

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrUnavailable is returned when a source cannot be reached or refuses
	// the request (network failure, auth failure, rate limiting, 5xx).
	// The run continues with the remaining sources; the daily schedule is
	// the retry.
	ErrUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse is returned when a source responds but the
	// payload cannot be decoded as expected. The source is skipped for
	// this run.
	ErrMalformedResponse = errors.New("malformed response")
)

// Source abstracts a public data endpoint. Fetch returns the staged payload:
// a JSON array of per-source items extracted verbatim from the upstream
// response, with no cleaning or coercion applied.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (json.RawMessage, error)
}
