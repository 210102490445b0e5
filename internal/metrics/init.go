package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "denied", "cancelled", "error"} {
		ScanRunsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"image", "video", "folder", "skipped"} {
		ScanEntriesTotal.WithLabelValues(outcome)
	}

	for _, result := range []string{"batch", "skipped", "busy"} {
		MaterializeTicksTotal.WithLabelValues(result)
	}

	for _, status := range []string{"success", "error", "discarded"} {
		MaterializedAssetsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"import", "delete", "move", "create_folder"} {
		for _, status := range []string{"success", "error", "rejected"} {
			MutationsTotal.WithLabelValues(op, status)
		}
		MutationDuration.WithLabelValues(op)
	}

	for _, strategy := range []string{"rename", "copy"} {
		MoveStrategyTotal.WithLabelValues(strategy)
	}

	for _, kind := range []string{"info", "success", "error"} {
		NoticesTotal.WithLabelValues(kind)
	}

	for _, state := range []string{"materialized", "pending"} {
		WorkspaceAssets.WithLabelValues(state)
	}

	for _, op := range []string{"create", "remove", "rename", "write", "chmod"} {
		WatcherEventsTotal.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error", "unsupported"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		for _, volume := range []string{"root", "database"} {
			FilesystemRetryAttempts.WithLabelValues(op, volume)
			FilesystemRetrySuccess.WithLabelValues(op, volume)
			FilesystemRetryFailures.WithLabelValues(op, volume)
			FilesystemStaleErrors.WithLabelValues(op, volume)
			FilesystemRetryDuration.WithLabelValues(op, volume)
		}
	}

	for _, op := range []string{"get_root", "save_root", "clear_root"} {
		StoreQueryTotal.WithLabelValues(op, "success")
		StoreQueryTotal.WithLabelValues(op, "error")
		StoreQueryDuration.WithLabelValues(op)
	}
}
