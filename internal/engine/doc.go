// Package engine implements the progress sync engine.
//
// ARCHITECTURE:
//
// Single Pass, Single Writer:
// Engine.Sync runs one pass at a time. A call that arrives while a pass is
// in flight returns immediately with Report.Skipped set; it is not an
// error. Within a pass every step is sequential:
//
// 1. Duplicate cleanup: one record per day survives (newest LastModified,
//    lowest row id on ties)
// 2. Snapshot collection: every record that is unsynced, marked for
//    deletion, or holding a tombstoned photo
// 3. Deletion pass: delete on the server, then remove locally whatever the
//    outcome (an unconfirmed deletion has nothing authoritative to protect)
// 4. Photo-deletion pass: one delete-photo call per tombstoned slot, in
//    slot order front, back, side
// 5. Upload pass: one create-or-update call per day carrying the full
//    metric set and every slot with local bytes
// 6. Remote merge: hydrate missing days, last-writer-wins for synced
//    records, soft-tombstone synced records the server no longer has
//
// Snapshots:
// Network calls are made from snapshots taken in step 2. After each call
// the engine re-reads the live record and applies only what the snapshot
// proves: a record whose LastModified moved during the call is left
// unsynced so the next pass pushes the newer state.
//
// Failure Semantics:
// A failed call for one day is recorded in Report.Failures and logged;
// the pass continues with the next day. Only failures to read the local
// store abort a pass.
//
// Every local write commits before the next network call, so a crash
// mid-pass leaves flags that reflect exactly what was durably applied.
package engine
