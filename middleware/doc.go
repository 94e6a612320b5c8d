// Package middleware provides net/http middlewares for applications
// served by the route package.
//
// # Recovery
//
// Recovery turns a panic in a downstream handler into a 500 response with
// a JSON error body and logs the recovered value.
//
//	app.Use(middleware.Recovery(middleware.RecoveryConfig{Logger: logger}))
//
// # Request ID
//
// RequestID generates or propagates a request id header and stores it in
// the request context. IDs are UUID v7 by default.
//
// # Access log
//
// AccessLog writes one structured log record per request.
package middleware
