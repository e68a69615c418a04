// Package storage presents one contract over two structurally different
// persistence engines.
//
// The file engine keeps every entity in a single in-memory mapping keyed
// "<TypeName>.<id>" and persists the whole object graph as one JSON snapshot,
// rewritten atomically on every Save. It has no foreign keys, so relational
// invariants (cascade deletes, link integrity) are enforced by explicit
// application code walking the relationship graph.
//
// The relational engine is backed by SQLite through database/sql. Foreign
// keys and cascade rules are declared in the schema and enforced by the
// database itself; New and Delete stage work in an active transaction that
// Save commits. A constraint violation rolls the whole session back.
//
// Open selects the engine from configuration at process start; callers hold
// a Store and never learn which engine is active.
package storage
