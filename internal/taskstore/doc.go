// Package taskstore owns task specs in memory and serializes every change to
// a task.
//
// Each task has its own lock, so modification batches against one task run
// one at a time while different tasks proceed in parallel. Modify enforces
// optimistic concurrency through the task version, checks the caller's
// secure key against the task's security table, applies the batch under the
// configured engine policy and validates the result against the model
// catalog before committing. Every applied operation is written to the audit
// log and counted in the metrics registry.
package taskstore
