// Package server implements the local HTTP API for ecofan.
//
// # Routes
//
//	GET  /health                     liveness and version
//	GET  /api/fans                   every fan with capabilities and device info
//	GET  /api/fans/{id}              one fan
//	POST /api/fans/{id}/turn_on      optional body {"preset_mode": "high"}
//	POST /api/fans/{id}/turn_off
//	POST /api/fans/{id}/preset_mode  body {"preset_mode": "low"}
//	GET  /api/events                 websocket stream of fan snapshots
//	GET  /metrics                    Prometheus exposition
//
// Commands answer with the fan's state after the command. A fan that did
// not answer still returns 200 with "available": false; only unknown ids
// (404) and invalid presets (400) are errors.
//
// # Event Stream
//
// A client connecting to /api/events first receives the current state of
// every fan, then one JSON message per refresh or command. Clients that
// fall behind are disconnected.
//
// # Graceful Shutdown
//
// Serve returns when its context is cancelled: event streams are closed
// first, then in-flight requests get up to 10 seconds to finish.
package server
