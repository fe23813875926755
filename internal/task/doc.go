// Package task runs background jobs, such as hidden-move prefetching, on a
// fixed worker pool. Tasks are persisted before they are queued so the runner
// can recover them after a restart.
package task
