// Package subscription owns the lifetime of one client subscription.
//
// A Handle moves Idle -> Active -> Closing -> Closed. Whatever triggers
// teardown (client disconnect, upstream error or close, cancellation, service
// shutdown) calls Close; only the first call runs the release funcs.
package subscription
