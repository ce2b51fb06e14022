// Package http contains the HTTP transport layer: the administrative
// license surface, the public validation endpoint, analytics, and health.
// Handlers bind and validate requests, call the services layer, and render
// responses; business rules live below.
package http
