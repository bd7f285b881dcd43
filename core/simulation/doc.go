// Package simulation drives the dispatch engine through simulated time.
//
// A Clock owns the fleet, depot and order registries. Each call to
// AdvanceInterval either consumes a precomputed packet or plans the next
// interval: midnight housekeeping, truck state transitions, one optimizer
// run over the orders in scope and a commit of the best plan up to the
// interval end. Breakdowns pause the clock, roll the history back to the
// packet in progress and emit a PATCH packet for the rest of that interval.
package simulation
