// Package gridmap models the city as a rectangular grid of kilometre-spaced
// nodes and answers shortest path queries that honour time-scoped road
// blockages.
package gridmap
