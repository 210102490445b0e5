/*
Package workers sizes and runs bounded worker pools.

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU still
reports the host. Count and its helpers derive pool sizes from GOMAXPROCS:

	workers.ForCPU(8)   // thumbnail decoding, 1 per CPU
	workers.ForIO(16)   // folder counting, 2 per CPU
	workers.ForMixed(8) // materializing a batch, 1.5 per CPU

Operators can pin the result with COUNT_WORKERS; the per-call limit still applies.

Each fans a fixed number of indexed jobs out over an errgroup with the chosen
limit:

	err := workers.Each(ctx, workers.ForIO(16), len(folders), func(ctx context.Context, i int) error {
	    return countOne(ctx, folders[i])
	})
*/
package workers
