// Package internal groups helpers that are private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - backend: HTTP client for the login, register and refresh endpoints
//   - clock: time source abstraction with a manually advanced fake
//   - flows: pure-function orchestrators for every Controller operation
//   - testbackend: in-memory finance backend used by tests and examples
//   - timer: single-handle background expiry timer
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
