// Package model defines the data types shared by the sync engine, the run
// timeline, the local store and the network client.
//
// DAY NUMBERING:
//
// The client numbers program days 1..100 with day 100 being the final
// checkpoint. The server keeps its own numbering in which the last regular
// day is 99. ToInternal and ToExternal translate between the two; every day
// other than the checkpoint is the identity.
//
// PHOTO SLOTS:
//
// Each ProgressRecord carries three PhotoSlot values (front, back, side).
// A slot is in exactly one of three states:
//   - Empty: nothing local, nothing remote
//   - Present: local bytes, a remote URL, or both
//   - Tombstoned: the user removed a photo the server still holds; the
//     deletion is pending until the next sync pass confirms it
//
// The state is an explicit tag. A tombstoned slot never carries bytes or a
// URL; the constructors make it impossible to build one that does.
//
// SNAPSHOTS:
//
// A Snapshot is an immutable copy of a record taken at the start of a sync
// pass. The engine talks to the network from the snapshot so the live
// record may keep changing underneath a long-running call.
package model
