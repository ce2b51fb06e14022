// Package app wires the service together: configuration, logging,
// observability, the record store, the license manager, and the HTTP
// surface. Components are constructed once at startup and injected; the
// package owns the server lifecycle including graceful shutdown.
package app
