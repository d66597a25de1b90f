// Package asset defines the identity and ownership model for the pipeline.
//
// Assets are values kept in typed stores and addressed by opaque IDs.
// External sources are addressed by Paths. Consumers never hold a pointer
// to an asset value; they hold a Handle over its ID and resolve through
// the store on every access.
//
// # Components
//
//   - ID: opaque identifier for a loaded value, stable across hot reloads.
//     Carries a generation so a recycled slot is a distinct ID and stale
//     weak handles resolve to absent instead of aliasing a new asset.
//   - Path: source namespace + relative path + optional label, addressing
//     an external source (or one labeled sub-asset of it).
//   - Handle: strong or weak ownership token. Strong handles keep the
//     asset retained via the RefCounts table; weak handles only observe.
//   - Assets[T]: typed table from ID to value, load state and version.
//   - RefCounts: strong reference counts plus the deferred drop queue.
//     Dropping the last strong handle never removes an asset inline; the
//     removal happens when the owner processes the drop queue.
//   - EventQueue: buffered Added/Modified/Removed notifications consumed
//     by the server's event stream.
//
// The load error taxonomy (ErrLoaderNotFound, ErrDeserialize, ...) also
// lives here so every layer of the pipeline reports failures in the same
// vocabulary.
package asset
