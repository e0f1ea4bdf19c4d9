// Package activity defines the capability syndicate uses to read posts and
// comments from an external social network.
//
// Activities and objects follow the ActivityStreams 1.0 JSON shape
// (verb, object, objectType, replies). Each backend implements Source:
//   - Client talks to an HTTP ActivityStreams endpoint
//   - Fake serves canned data and records calls, for tests and local runs
//
// A Registry picks the backend for a stored source by its short name.
package activity
