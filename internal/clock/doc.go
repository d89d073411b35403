// Package clock provides the vector clock used to track causality between
// writes, and the Versioned wrapper pairing a value with its clock. Clocks
// are immutable: Incremented and Merge return new clocks.
package clock
