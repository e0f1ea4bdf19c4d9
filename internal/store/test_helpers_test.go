package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/syndicate/internal/model"
)

var testNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// testClock is a settable clock for lease and backoff tests.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// createTestStore creates a new store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: testNow}
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// createTestResponse creates a comment response with minimal required fields.
func createTestResponse(key, sourceKey string) model.Response {
	return model.Response{
		Key:          key,
		Type:         model.ResponseTypeComment,
		SourceKey:    sourceKey,
		ActivityJSON: `{"id":"post-1"}`,
		ResponseJSON: `{"objectType":"comment","id":"` + key + `"}`,
	}
}

// createTestSource creates a fake source that has never been polled.
func createTestSource(key, name string) model.Source {
	return model.Source{
		Key:        key,
		Kind:       "FakeSource",
		ShortName:  "fake",
		Name:       name,
		LastPolled: model.Epoch,
	}
}

func pollTaskFor(src model.Source) model.Task {
	return model.NewPollTask(model.DefaultPollURL, src.Key, src.LastPolled)
}
