// Package publish fans a rendered artifact out to the publishing targets.
//
// Exactly one Strategy runs per publish. Aggregated hands the artifact to the
// upload-post aggregator in a single submission and adopts its verdict. Direct
// uploads to the primary platform first and, only when that succeeds, walks
// the best-effort platforms sequentially, recording each outcome without ever
// failing the step on their account.
package publish
