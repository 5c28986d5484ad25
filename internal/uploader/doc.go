// Package uploader pushes local media files to a session's pre-allocated
// asset slots. Files upload concurrently; progress is reported per file and
// as a monotonically non-decreasing aggregate percentage that reaches exactly
// 100 once every file has landed.
package uploader
