// Package source implements the SourceIO capability: reading raw asset
// bytes from named namespaces and, where the backend supports it,
// writing and watching them.
//
// # Capabilities
//
// Every source implements IO (Read). The optional capabilities are
// discovered by interface assertion:
//
//   - Writer: atomic writes, required for Save and metadata sidecars.
//   - Lister: directory enumeration, required for folder loads.
//   - Watcher: change notifications, feeding hot reload.
//
// # Implementations
//
//   - FileIO: a local directory tree. Writes go through temp file +
//     rename so a crash never leaves a torn file; Watch uses fsnotify
//     with per-path debouncing.
//   - ObjectIO: a bucket prefix in S3/MinIO via core/storage.
//
// # Registry
//
// The Registry maps namespaces ("default", "remote", ...) to sources.
// Asset paths carry their namespace, so "remote://models/chair.gltf"
// and "models/chair.gltf" resolve through different backends.
package source
