// Package credstore persists the client's access and refresh tokens as opaque strings.
//
// # Implementations
//
// [MemoryStore] keeps tokens for the lifetime of the process. [FileStore] writes a small
// JSON document with owner-only permissions and survives restarts. [RedisStore] keeps
// tokens in Redis for shared or containerised clients.
//
// # Architecture boundaries
//
// This package stores strings. It does NOT decode tokens, decide whether they are expired,
// or publish session status; those responsibilities belong to the Controller.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Log token values.
//   - Return an error for a missing key.
package credstore
