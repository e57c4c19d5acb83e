// Package handlers provides the HTTP surface of image-resize-ai.
//
// It includes handlers for:
//   - On-demand image transforms, as bytes (/media/) or as a JSON descriptor (/api/transform/)
//   - Video job submission and status polling (/api/video)
//   - Serving materialised cache artifacts (/cache/)
//   - Health, liveness, readiness and version probes
//
// Route registration lives in main; this package only implements the
// handler funcs. Failures are written as {"success":false,"error":...} with
// the status that mediaerr.HTTPStatus assigns to the error kind.
package handlers
