// Package storage provides the causally versioned key-value store: the
// generic Store contract, a map-backed InMemoryStore implementing the
// sibling conflict-resolution algorithm, and the Actor that gives many
// goroutines serialized access to one store without sharing its map.
package storage
