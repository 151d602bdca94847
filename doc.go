// Package goSession manages the authentication session of a finance tracker client:
// token persistence, the Unknown/Authenticated/Unauthenticated state machine, refresh
// rotation, app-lifecycle expiry and authenticated HTTP calls.
//
// A [Controller] is built once through [Builder.Build] and shared by the whole process.
// Its methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Controller], [Gateway], [Builder],
// [Config] and value types ([Session], [Status], [MetricsSnapshot]). Flow orchestration,
// the backend HTTP client, audit dispatch and the background timer live under
// internal/ and are never exported. Persistence is pluggable through the credstore
// package; token claims are read by the jwt package.
//
// # What this package must NOT do
//
//   - Publish a status before the credential store reflects it.
//   - Log or audit token values.
//   - Verify token signatures. The backend is the trust boundary; claims are read only
//     for expiry and user id.
//   - Retry a request more than once or refresh more than once per burst of 401s.
package goSession
