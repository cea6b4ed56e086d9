// Package store provides SQLite-backed storage for recipes, actions and
// their signatures.
//
// The store mirrors the authoring content that the signing coordinator
// and the reconciler read on every pass, and persists signature records.
//
// # Tables
//
//   - actions: name-unique executable behaviors with an arguments schema
//   - recipes: targeting rules referencing an action by name
//   - signatures: one row per (entity_kind, entity_id)
//
// # Determinism
//
//   - List queries order by id COLLATE BINARY
//   - JSON columns hold canonical payloads, so byte comparison of stored
//     content is meaningful
//   - Timestamps are stored as RFC 3339 with nanoseconds in UTC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: recipes.action_name must name an existing action
package store
