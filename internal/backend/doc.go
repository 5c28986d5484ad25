// Package backend is the JSON/HTTPS client for the video-editing backend:
// session creation and finalization, filler detection, trimming, clip
// suggestions, workflow config persistence, resume lookup, AI processing, and
// task status. Payload shapes mirror the backend's external contract; HTTP 402
// decodes to the insufficient-credits sentinel so callers can open the pricing
// surface instead of showing a plain error.
package backend
