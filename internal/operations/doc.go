// Package operations runs the cohort pipeline as a sequence of named steps.
//
// A Manager executes the steps registered in a Registry in dependency order. Each
// step reads its inputs from and writes its outputs to the shared OperationState,
// runs under its own timeout and reports progress through the StatusBroadcaster,
// which pushes complete snapshots to a websocket hub.
//
// The first failing step aborts the run; there are no retries. The pipeline is a
// deterministic transform that is simply re-run.
//
// Steps, in order:
//
//	load -> rates -> join -> valuation -> cohort -> assemble -> export [-> publish]
//
// Every run produces a RunManifest recording input digests, per-step row counts
// and the written outputs.
package operations
