// Package jobs coordinates asynchronous video generation.
//
// A Job record, keyed by the video fingerprint, moves through
// submitted → running → completed | failed. The record is the only
// coordination point between processes: Store.CreateJob is an atomic
// insert-if-absent, so exactly one submitter sends a given fingerprint to
// the Provider, and every other submitter sees the existing record.
//
// Submit answers identical requests from the stored record: a completed job
// returns its cached video without contacting the provider, a running job
// returns its operation name, and a failed job returns the stored failure
// unless the caller asks to resubmit.
//
// Poll checks the provider at a fixed interval under a wall-clock ceiling.
// Finished videos are downloaded into the cache under the build lock and
// the job is marked completed; provider failures mark it failed. Running
// out of time returns OutcomeStillRunning and leaves the job untouched, so
// a later poll resumes where this one stopped.
package jobs
