/*
Package workers sizes worker pools from GOMAXPROCS rather than
runtime.NumCPU, so a pod limited to 2 CPUs on a 64-core node gets 2 image
builders instead of 64.

	builds := workers.ForCPU(8)   // concurrent image transforms
	uploads := workers.ForIO(16)  // concurrent provider submissions in mediactl

Operators can pin the count with TRANSFORM_WORKERS; the per-call limit still
applies on top of the override.
*/
package workers
