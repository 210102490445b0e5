/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Board roots are frequently network mounts. Listing a board or opening an asset
while the server reshuffles inodes yields ESTALE, which usually clears on a
second attempt. StatWithRetry, OpenWithRetry and ReadDirWithRetry wrap the
matching os calls and retry only on ESTALE, with exponential backoff.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Defaults are 3 retries starting at 50ms and capped at 500ms. All other errors
return immediately.

Every call is labeled with a volume name for metrics. Register volumes at
startup and re-point them when they move:

	filesystem.SetVolume("database", cfg.DatabaseDir)
	filesystem.SetVolume("root", rootPath)

The fsapi package's local directory handles route all reads through here.
*/
package filesystem
