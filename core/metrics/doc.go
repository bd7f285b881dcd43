// Package metrics defines the sinks that observe the dispatch simulation.
// Every sink records emitted solution packets; sinks may additionally
// implement OptimizationRecorder, BreakdownRecorder or TruckStateRecorder.
// Sinks are built from configuration through the factory registry and
// combined with NewMultiSink when several are configured.
package metrics
