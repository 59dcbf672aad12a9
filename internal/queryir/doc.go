// Package queryir is the structured query representation shared by every
// Record Store backend.
//
// Callers never hand a store a raw SQL fragment or an open-ended key/value
// map. They build a Select out of sealed Predicate nodes over column names
// that the collection registry has already validated:
//
//	[request fields] → collection.Descriptor → [queryir.Select] → querysql (SQLite)
//	                                                           → Eval (memstore)
//
// Predicate is sealed with the marker-method pattern, so backends can switch
// exhaustively over Equals, NotEquals, Compare and And.
//
// An empty And is vacuously true, as is a nil Filter.
package queryir
