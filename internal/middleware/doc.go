// Package middleware provides the HTTP middleware chain for the boards server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip response compression that leaves event streams and binary media alone
package middleware
