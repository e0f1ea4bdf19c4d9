package model

import "time"

// Queue names.
const (
	QueuePropagate = "propagate"
	QueuePoll      = "poll"
)

// Default target URLs for each queue. Callers may override them via config.
const (
	DefaultPropagateURL = "/_ah/queue/propagate"
	DefaultPollURL      = "/_ah/queue/poll"
)

// Task param names.
const (
	ParamResponseKey = "response_key"
	ParamSourceKey   = "source_key"
	ParamLastPolled  = "last_polled"
)

// PollTimeLayout formats last_polled params as YYYY-MM-DD-HH-MM-SS.
const PollTimeLayout = "2006-01-02-15-04-05"

// Task is a unit of queued work.
type Task struct {
	ID        int64             `json:"id"`
	Queue     string            `json:"queue"`
	URL       string            `json:"url"`
	Params    map[string]string `json:"params"`
	Attempts  int               `json:"attempts"`
	NextRunAt time.Time         `json:"next_run_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewPropagateTask builds the task that delivers a newly saved response.
func NewPropagateTask(url, responseKey string) Task {
	return Task{
		Queue:  QueuePropagate,
		URL:    url,
		Params: map[string]string{ParamResponseKey: responseKey},
	}
}

// NewPollTask builds the task that checks a source for new activity since lastPolled.
func NewPollTask(url, sourceKey string, lastPolled time.Time) Task {
	return Task{
		Queue: QueuePoll,
		URL:   url,
		Params: map[string]string{
			ParamSourceKey:  sourceKey,
			ParamLastPolled: FormatPollTime(lastPolled),
		},
	}
}

// FormatPollTime renders t in UTC using PollTimeLayout. The zero time
// formats as the Unix epoch.
func FormatPollTime(t time.Time) string {
	if t.IsZero() {
		t = Epoch
	}
	return t.UTC().Format(PollTimeLayout)
}

// ParsePollTime is the inverse of FormatPollTime.
func ParsePollTime(s string) (time.Time, error) {
	return time.ParseInLocation(PollTimeLayout, s, time.UTC)
}
