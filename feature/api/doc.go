// Package api exposes the asset server over HTTP.
//
// It follows the handler/service split: the Service wraps the asset
// server and owns the strong handles for loads started through the API,
// the Handler translates Fiber requests into service calls.
//
// # Endpoints
//
//   - POST /assets/load      start loading a path (?wait=true blocks)
//   - POST /assets/reload    re-import a changed source
//   - GET  /assets/state     report a source's load state
//   - GET  /assets/events    drain buffered lifecycle events
//   - POST /assets/collect   free unreferenced assets
//   - DELETE /assets         force-unload a source
//   - GET  /health           liveness probe
//
// Loads started here are pinned until the matching DELETE, so an asset
// requested over the API never disappears under a later collect pass.
package api
