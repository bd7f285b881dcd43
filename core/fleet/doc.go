// Package fleet holds the in-memory registries for trucks, depots, orders and
// breakdowns owned by the simulation clock.
package fleet
