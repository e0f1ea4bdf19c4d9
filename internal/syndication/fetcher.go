package syndication

import (
	"context"
	"fmt"

	"github.com/roach88/syndicate/internal/activity"
)

// Fetcher reads single posts and comments from an activity backend.
// Backend errors are returned as-is and never retried.
type Fetcher struct {
	src activity.Source
}

// NewFetcher creates a Fetcher delegating to src.
func NewFetcher(src activity.Source) *Fetcher {
	return &Fetcher{src: src}
}

// GetPost returns the first activity the backend reports for id.
// Returns ErrNotFound if there is none.
func (f *Fetcher) GetPost(ctx context.Context, id string) (activity.Activity, error) {
	acts, err := f.src.GetActivities(ctx, id)
	if err != nil {
		return activity.Activity{}, err
	}
	if len(acts) == 0 {
		return activity.Activity{}, fmt.Errorf("post %q: %w", id, ErrNotFound)
	}
	return acts[0], nil
}

// GetComment returns the comment with id. activityID may be empty.
func (f *Fetcher) GetComment(ctx context.Context, id, activityID string) (activity.Object, error) {
	return f.src.GetComment(ctx, id, activityID)
}
