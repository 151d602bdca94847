// Package jwt decodes bearer-token claims on the client side and, for the mock backend
// and tests, mints HS256 tokens with the same claim layout the finance backend issues.
//
// # Architecture boundaries
//
// Decode never verifies signatures. The server is the trust boundary; the client only
// reads exp and user_id to decide whether a stored session is still usable.
//
// # What this package must NOT do
//
//   - Perform I/O or touch the credential store.
//   - Import goSession (no import cycles).
package jwt
