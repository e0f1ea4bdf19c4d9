// Package model defines the entities shared by every syndicate package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Entity keys are opaque strings and never change once persisted
//   - Responses reference their Source by key only (weak reference)
//   - Task params are string-to-string maps, serialized as canonical JSON
//   - All timestamps are stored and formatted in UTC
package model
