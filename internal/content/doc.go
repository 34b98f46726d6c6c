// Package content defines the content plan a run renders and publishes.
//
// A ContentPlan arrives from the generation service in whatever shape the
// model produced. Normalize fills every missing field with a safe default so
// the plan can always be submitted to the renderer: at least one scene, a
// non-empty clamped title, at least one tag, a music tag from the renderer's
// vocabulary, and a voice.
package content
