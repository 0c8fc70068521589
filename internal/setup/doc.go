// Package setup validates a fan address and turns it into a config entry.
//
// Prober does the network half: one GET of <host>/api/state, no retries,
// HTTP status ignored. Flow wraps it in the single-step form used by the
// wizard and by `ecofan setup --host`, mapping every outcome to exactly
// one of cannot_connect or unknown (invalid_auth is reserved).
package setup
