// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - PacketEvent: a solution packet was appended to the history
//   - BreakdownEvent: a breakdown was handled
//   - OptimizationEvent: outcome of one optimizer run
package events
