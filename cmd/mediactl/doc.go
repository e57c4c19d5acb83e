// Command mediactl drives the image-resize-ai transform engine and video job
// service from the command line.
//
// It shares configuration, cache directory, database and build locks with
// the server, so work started from one is visible to the other: a video
// submitted with mediactl can be polled through /api/video/status and a
// transform built by the server is a cache hit here.
//
// Subcommands:
//
//	video      submit image-to-video jobs, optionally waiting for them
//	poll       check or wait on a submitted job
//	transform  build or fetch a transformed image
//	sweep      remove cache entries older than a TTL
//
// Every subcommand prints a single JSON object on stdout and logs to stderr.
// The exit status is 0 on success and 1 otherwise.
package main
