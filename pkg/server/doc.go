// Package server provides the HTTP server for the dashboard AI backend.
package server
