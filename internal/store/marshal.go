package store

import (
	"fmt"
	"time"

	"github.com/roach88/syndicate/internal/model"
)

// toNanos converts t to the INTEGER representation stored in every
// timestamp column. The zero time maps to 0 (the Unix epoch).
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

// fromNanos is the inverse of toNanos.
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// marshalParams converts task params to canonical JSON TEXT for storage.
func marshalParams(params map[string]string) (string, error) {
	data, err := model.MarshalParams(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses canonical JSON TEXT back into task params.
func unmarshalParams(data string) (map[string]string, error) {
	params, err := model.UnmarshalParams([]byte(data))
	if err != nil {
		return nil, err
	}
	return params, nil
}
