// Package taskwatch observes backend AI tasks until they reach a terminal
// state. Two implementations share one callback contract: a Poller that
// samples task status on an interval with exponential backoff on transport
// errors, and a Subscriber that receives pushed status events over a
// websocket. Both guarantee at most one terminal callback and no callbacks
// after cancellation.
package taskwatch
