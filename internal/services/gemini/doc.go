// Package gemini generates daily content plans through the Gemini
// generateContent API in JSON response mode.
//
// The client never retries: a failed or unparseable generation is reported as
// services.ErrInvalidResponse (or services.ErrNotConfigured without an API key)
// and the caller decides whether to re-run the whole pipeline.
package gemini
