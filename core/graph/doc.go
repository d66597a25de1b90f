// Package graph maintains the directed dependency graph between loaded
// assets.
//
// The server uses it in both directions:
//
//  1. Forward: an asset may transition to Loaded only once all of its
//     required dependencies are terminal.
//  2. Reverse: when a source changes on disk, the transitive dependents
//     of its assets are the reload fan-out set.
//
// # Cycle Detection
//
// AddEdge rejects the edge that would complete a cycle, so a dependency
// chain that returns to its origin surfaces as ErrCyclicDependency on
// the offending node instead of leaving loads waiting forever.
package graph
