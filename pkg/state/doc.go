// Package state defines the persistence-facing contract used by the draft
// synchronization engine, plus two stores that satisfy it.
//
// Responsibilities:
//   - Client saves one complete draft Document under an optional resource id
//     and publishes a previously saved draft.
//   - Save is an idempotent upsert: an empty id creates a new draft and returns
//     its id, a non-empty id overwrites that draft and echoes its canonical id.
//   - Loader reads a stored draft back so a wizard session can be hydrated.
//   - There is no optimistic concurrency check. The last save wins.
//
// Data flow:
//
//	Coordinator -> Client.Save(id, Document) -> SaveResult{ResourceID}
//	Loader.Load(id) -> Record -> draftsync.HydrateSession
//
// Implementations:
//
//	MemoryStore  in-process map, for tests, examples and the CLI "memory" driver.
//	SQLiteStore  modernc.org/sqlite backed store with embedded migrations.
package state
