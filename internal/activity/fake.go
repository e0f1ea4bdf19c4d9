package activity

import (
	"context"
	"fmt"
	"sync"
)

// Call records one request made to a Fake.
type Call struct {
	Method     string
	ActivityID string
	CommentID  string
}

// Fake is an in-memory Source. Activities are returned in insertion order.
type Fake struct {
	mu         sync.Mutex
	activities []Activity
	comments   map[string]Object
	err        error
	calls      []Call
}

// NewFake creates a Fake serving the given activities.
func NewFake(activities ...Activity) *Fake {
	return &Fake{
		activities: append([]Activity(nil), activities...),
		comments:   make(map[string]Object),
	}
}

// AddActivity appends an activity.
func (f *Fake) AddActivity(a Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, a)
}

// SetComment stores a comment for GetComment.
func (f *Fake) SetComment(obj Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[obj.ID] = obj
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the requests seen so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// GetActivities implements Source. A non-empty activityID filters by id.
func (f *Fake) GetActivities(_ context.Context, activityID string) ([]Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "GetActivities", ActivityID: activityID})
	if f.err != nil {
		return nil, f.err
	}

	out := []Activity{}
	for _, a := range f.activities {
		if activityID == "" || a.ID == activityID {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetComment implements Source.
func (f *Fake) GetComment(_ context.Context, commentID, activityID string) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "GetComment", ActivityID: activityID, CommentID: commentID})
	if f.err != nil {
		return Object{}, f.err
	}

	obj, ok := f.comments[commentID]
	if !ok {
		return Object{}, fmt.Errorf("comment %q: %w", commentID, ErrNotFound)
	}
	return obj, nil
}
