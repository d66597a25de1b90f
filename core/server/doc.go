// Package server is the asset pipeline's orchestrator. It owns the
// per-source load state machine and connects the other core packages:
// sources provide bytes, loaders parse them, typed stores hold the
// results, the graph tracks dependencies and the metadata store makes
// imports skippable.
//
// # Loading
//
// Load and LoadPath return a strong handle immediately; the pipeline
// runs in the background. A source moves through
//
//	Requested -> Reading -> Parsing -> WaitingOnDeps -> Loaded
//
// and may drop to Failed from any non-terminal state. Concurrent
// requests for the same source path share one read and one parse: the
// check of the in-flight record and the transition to Requested happen
// under a single lock hold, and the pipeline work itself runs under a
// per-path singleflight group.
//
// # Dependencies
//
// Loaders declare the paths their asset depends on. Edges are recorded
// in the graph before the dependent can reach Loaded, required
// dependencies gate the Loaded transition and a dependency failure
// fails the dependent fast (or flags it degraded, see
// Config.DegradedDeps). The edge that would close a cycle is rejected
// and fails the source adding it.
//
// # Reloading
//
// Reload re-imports a changed source and then re-runs every transitive
// dependent. Content changes are detected by fingerprint, so touching
// a file without changing it is a no-op. Watch feeds source change
// notifications into Reload.
//
// # Memory
//
// Strong handles pin assets. Dropping the last strong handle queues
// the asset for removal; FreeUnused processes the queue at a caller
// chosen synchronization point. Weak handles never pin and resolve to
// absent once the asset is freed.
package server
