// Package server implements the relay's WebSocket session and broadcast engine.
//
// A Hub tracks live sessions and the roster of announced display names, fans
// chat events out to every connection and hands them to the event log without
// waiting on the store. Clients, configuration, origin checks, rate limiting,
// routing and HTTP handlers live in their own files.
package server
