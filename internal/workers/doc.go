/*
Package workers sizes and runs worker pools in containerized environments.

# Sizing

runtime.NumCPU reports the host's CPUs, not the container's limit. Count
and its helpers start from GOMAXPROCS, which Go sets from the cgroup CPU
quota, and scale by the task type:

	numWorkers := workers.ForCPU(8)   // 1 per CPU, at most 8
	numWorkers := workers.ForIO(16)   // 2 per CPU, at most 16
	numWorkers := workers.ForMixed(8) // 1.5 per CPU, at most 8

The INDEX_WORKERS environment variable pins the count. It is useful on
NFS or SMB mounts where many concurrent readers hurt more than they help:

	INDEX_WORKERS=3

The override is still capped by the limit passed by the caller.

# Running

Run fans jobs from a channel out to n goroutines and returns when the
channel is closed and drained, or when the context is cancelled:

	jobs := make(chan string)
	go func() {
		defer close(jobs)
		for _, p := range paths {
			jobs <- p
		}
	}()
	workers.Run(ctx, workers.ForMixed(8), jobs, func(ctx context.Context, p string) {
		probe(ctx, p)
	})

fn must be safe for concurrent use.
*/
package workers
