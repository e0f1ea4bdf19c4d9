// Package syndication implements the publishing core of syndicate.
//
// Publisher persists responses and sources and enqueues their follow-on
// tasks. The persist and the enqueue always share one store transaction:
//
//   - GetOrSave saves a response at most once per key and enqueues exactly
//     one propagate task, on the call that created it. Later calls return
//     the stored response and enqueue nothing.
//   - CreateNew creates or refreshes a source and enqueues a poll task on
//     every call, then reports what happened to a MessageSink.
//
// Fetcher wraps an activity.Source for single posts and comments.
// PollHandler and PropagateHandler execute the queued tasks.
package syndication
