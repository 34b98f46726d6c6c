// Package services defines shared utilities consumed by the pipeline stages
// and the remote service clients in its subpackages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so a failure deep in a
//     client can be classified (Kind) by the orchestrator, the history store,
//     and notifications without string matching.
//
// Subpackages hold the thin request/response clients for the generation
// service, the renderer, object storage, publishing targets, and GitHub.
package services
