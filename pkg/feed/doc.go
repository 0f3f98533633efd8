// Package feed serves the voice-state feed of an ambient session.
//
// Endpoints:
//
//	GET  /voices         current snapshot (voices, key, state)
//	GET  /voices/ws      WebSocket; each client message gets one reply
//	GET  /pitch-classes  gain per pitch class
//	GET  /spectrum       analyser magnitude spectrum
//	GET  /status         session counters
//	POST /start          start trigger
//
// Payloads are JSON by default, or msgpack with ?codec=msgpack or an
// Accept: application/msgpack header.
package feed
