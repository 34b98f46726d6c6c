// Package pipeline sequences one daily run: readiness check, content plan,
// render, optional storage upload, publish, and gated source archival.
//
// Stages never overlap. Mandatory stages (readiness, plan, render) abort the
// run on failure. Storage and archival failures become diagnostics. A publish
// failure ends the run unsuccessfully but still reaches Done so the run result
// carries everything that happened.
package pipeline
