// Package optimizer assigns orders and rescue tasks to trucks with a
// genetic algorithm whose fitness is the total distance driven.
package optimizer
