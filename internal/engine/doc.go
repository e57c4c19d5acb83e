// Package engine implements the transform request path.
//
// For each request the Engine strips the prompt unless granted, computes the
// fingerprint and checks the cache. A hit returns at once. A miss takes the
// build lock (waiting and rechecking the cache while another worker holds
// it), checks the cache once more, reads the source, runs the transformer
// or prompt generator, writes the entry and releases the lock. The lock is
// released on every path, including failures.
//
// Concurrent identical requests inside one process collapse onto a single
// build through singleflight before they reach the lock.
package engine
