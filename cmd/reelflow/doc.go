// Package main hosts the reelflow CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the editing workflow end to end:
// creating sessions, picking analyses, reviewing filler words, confirming
// B-roll, and resuming from the backend-recorded step. It centralizes
// configuration resolution, run locking, and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
