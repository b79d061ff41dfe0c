// Package middleware provides the HTTP middleware chain for the proxy:
// panic recovery, request logging, request ID propagation, CORS, and
// tenant authentication.
//
// Chain order (outermost first): Recovery, Logging, RequestID, CORS, then
// per-route tenant auth. Recovery sits outermost so a panic anywhere in
// the chain still yields a well-formed 500.
package middleware
