// Package flows contains pure-function orchestrators for gateway operations.
//
// Each flow function (RunCreateChallenge, RunCreateToken) accepts a typed
// dependency struct and returns results without side effects beyond those
// dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate the challenge cache, token minting, the issuance
// throttle, audit and metrics. They do NOT own any of these resources;
// ownership stays with the Gateway.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (import cycle).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
