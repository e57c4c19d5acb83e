// Package middleware provides the HTTP middleware of the image-resize-ai
// server.
//
// It includes:
//   - Access logging in W3C Extended Log Format, with the X-Cache status
//   - gzip compression of JSON and text responses
//   - Prometheus request metrics labelled by route template
package middleware
