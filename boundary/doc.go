// Package boundary routes presentation between the authenticated and unauthenticated
// trees of an application based on a session's status.
//
// # Components
//
//   - [Source]: the read-only status contract a [goSession.Controller] satisfies.
//   - [Wait]: blocks until the status leaves Unknown.
//   - [Gate]: an http.Handler that serves a loading, authenticated or unauthenticated
//     handler per request.
//   - [Guard]: middleware that admits only authenticated traffic.
//
// # What this package must NOT do
//
//   - Mutate the session. Login, logout and refresh belong to the Controller.
//   - Serve the authenticated tree while the status is Unknown.
package boundary
