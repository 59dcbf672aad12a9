// Package ir defines the small value model shared by the query layer, the
// record stores and the engine.
//
// Rows read from any store are IRObjects keyed by external field name
// (e.g. "id", "orderKey", "parentId"). Filter literals are IRValues. The set of
// value types is sealed and has no floats: order keys, identifiers and scope
// values are all integers, and equality on them must be exact.
//
// ir imports nothing internal; every other package may import it.
package ir
