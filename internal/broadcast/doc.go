// Package broadcast implements the session registry and fan-out engine using
// the actor pattern.
//
// A single goroutine owns the client map and the safety level map and
// processes commands from a channel (no mutexes). Per-connection write
// goroutines with bounded queues keep a slow client from head-of-line
// blocking delivery to the others; a client whose queue is full is dropped.
// The same goroutine runs the heartbeat ticker that pings every session.
package broadcast
