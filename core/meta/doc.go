// Package meta persists per-source import metadata and drives change
// detection.
//
// For every imported source the store keeps a SourceMeta record: the
// BLAKE3 fingerprint of the source bytes, the list of asset IDs the
// import produced, and each asset's dependency paths. Records live as
// JSON sidecars next to the source ("scene.json" → "scene.json.meta"),
// written through the source layer's atomic Writer capability.
//
// # Change Detection
//
// GetOrImport compares the stored fingerprint against the current
// bytes. A match short-circuits the import entirely, which is why
// hot-reloading an unchanged source is a no-op. Metadata is
// persisted only after a successful import, so a crash mid-import
// cannot leave a record pointing at partially-produced assets.
//
// # Derivation
//
// The Derivers registry is the optional extension point that turns a
// parsed source into a precomputed artifact (compression, baking)
// before consumers see it. Unregistered types pass through unchanged;
// derived artifacts are recorded in the SourceMeta with the source
// fingerprint that produced them.
package meta
