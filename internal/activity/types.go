package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend has no such activity or comment.
var ErrNotFound = errors.New("activity not found")

// Source is the capability for reading activities from one backend.
//
// An empty activityID asks for the most recent activities of the account.
type Source interface {
	GetActivities(ctx context.Context, activityID string) ([]Activity, error)
	GetComment(ctx context.Context, commentID, activityID string) (Object, error)
}

// Activity is an ActivityStreams activity, usually a post.
type Activity struct {
	ID        string  `json:"id,omitempty"`
	Verb      string  `json:"verb,omitempty"`
	URL       string  `json:"url,omitempty"`
	Published string  `json:"published,omitempty"`
	Object    *Object `json:"object,omitempty"`
}

// Object is an ActivityStreams object: a note, comment, person and so on.
type Object struct {
	ID         string      `json:"id,omitempty"`
	ObjectType string      `json:"objectType,omitempty"`
	Content    string      `json:"content,omitempty"`
	URL        string      `json:"url,omitempty"`
	Published  string      `json:"published,omitempty"`
	Author     *Object     `json:"author,omitempty"`
	InReplyTo  []Object    `json:"inReplyTo,omitempty"`
	Replies    *Collection `json:"replies,omitempty"`
}

// Collection holds a page of objects, such as replies to a post.
type Collection struct {
	TotalItems int      `json:"totalItems,omitempty"`
	Items      []Object `json:"items,omitempty"`
}

// Replies returns the replies attached to the activity's object, if any.
func (a Activity) Replies() []Object {
	if a.Object == nil || a.Object.Replies == nil {
		return nil
	}
	return a.Object.Replies.Items
}

// EncodeJSON renders v as compact JSON for storage alongside a response.
func EncodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode activity json: %w", err)
	}
	return string(data), nil
}
