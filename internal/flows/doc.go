// Package flows contains pure-function orchestrators for every Controller operation.
//
// Each flow function (RunBootstrap, RunLogin, RunRefresh, etc.) accepts a typed
// dependency struct and returns a result carrying either the new token state or a
// classified failure. The Controller maps failure kinds onto its public errors and
// owns every state transition.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, the token codec and the
// backend client. They do NOT own any of these resources; ownership stays with the
// Controller.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Publish session status. Persisting is the last step of every flow so the caller
//     can publish only after storage succeeded.
package flows
