// Package services holds cross-cutting service helpers: the sentinel error
// taxonomy used to classify step failures, and context annotation helpers that
// carry session, step, mode, and correlation identifiers through call chains.
package services
