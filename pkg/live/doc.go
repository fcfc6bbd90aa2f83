// Package live fans domain events out to the subscribers of a review session.
//
// A Registry tracks the open connections of every session with one lock per
// session, so traffic on one session never contends with another. The
// Broadcaster writes events to those connections, keeps them alive with
// heartbeats and drops the ones whose sink fails.
package live
