// Package taskspec holds the task graph: track, mixer, fixed instance and
// dynamic instance nodes joined by connections between their pads.
//
// A TaskSpec is mutated through the closed set of Modification values. Each
// modification checks all of its preconditions before touching the aggregate,
// so a failed call leaves the spec exactly as it was and returns a
// *ModifyError. Deleting a node sweeps every connection that referenced one of
// its pads; that sweep is the only thing keeping connections from dangling.
//
// Validate is a separate read-only pass that resolves instance models through
// an injected ChannelCatalog and checks pad polarity and channel mask bounds.
// It is meant for specs assembled outside the modification path, such as a
// create-task payload.
//
// Batches are applied in order by ApplyBatch. By default a failure leaves the
// earlier operations applied; BatchOptions.Atomic applies the batch to a clone
// and only commits when every operation succeeded.
//
// The package performs no I/O and no locking. Callers that share a TaskSpec
// between goroutines must serialize access themselves.
package taskspec
