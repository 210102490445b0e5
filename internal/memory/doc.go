// Package memory keeps the server inside its container's memory limit.
//
// Go detects CPU limits from cgroups on its own but not memory limits, so
// [Configure] sets GOMEMLIMIT from, in order of precedence:
//
//   - GOMEMLIMIT, when already set (left untouched)
//   - MEMORY_LIMIT, a byte count, typically from the Kubernetes Downward API
//   - the cgroup v2 memory.max file
//
// MEMORY_RATIO (default 0.85) is the share of the limit given to the Go heap;
// the rest covers goroutine stacks and decode buffers outside the heap.
//
// [Monitor] samples the heap against that limit. Above the high water mark
// its Allow method returns false, which pauses preview rendering: decoding a
// large image is the one allocation in this server that scales with user
// input. Rendering resumes once usage falls back below the low water mark.
//
//	memory.Configure(os.Getenv, memory.DefaultCgroupPath)
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//	thumbs.SetGate(mon)
package memory
