// Package scheduler defers work until the host is idle.
//
// Idle approximates an idle callback with a short timer. Manual queues
// callbacks until RunPending is called, which keeps tests deterministic.
package scheduler
