// Package server holds the HTTP server configuration.
//
// The actual Fiber application is assembled in cmd/start.go; this package
// only carries the settings shared between the server and the features it
// hosts (listen port, API key, outbound User-Agent).
package server
