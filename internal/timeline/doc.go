// Package timeline owns the program run: its start date, the current day
// derived from it, and the reconciliation of that date with the server.
//
// Timeline persists the start date and the server's max read day in the
// shared key/value store. Days are counted on calendar days in the
// configured location: the start date is day 1 whatever its time of day.
//
// Reconciler decides at every status check whether to start a run, push
// the local date, adopt the server's date, or surface a Conflict. Once the
// dates agree it runs the registered sub-syncs (progress, exercises,
// journal). A conflict blocks the sub-syncs until the caller picks a side.
//
// Facade is the entry point the rest of the app calls. It serializes
// status checks through a small state machine:
//
//	Idle ──GetStatus──▶ LoadingInitialData (nothing loaded yet)
//	                    SynchronizingData  (a run was loaded before)
//	     ◀─────────────  success, conflict, or a failure after first load
//	Error(msg) ◀──────── failure during the very first load
//
// A call that arrives while either loading state is active returns at once
// without touching the network. Subscribers observe every transition.
package timeline
