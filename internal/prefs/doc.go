// Package prefs stores the small key/value settings shared between the app
// and its extensions: the run start date and the server's max read day.
//
// Values live in a shared-scope BoltStore. Installs that predate the shared
// store kept the same keys in a per-app YAML file; Defaults reads through
// to that legacy file when a key is missing from the shared store and
// copies the known keys across once, recording MigratedKey when done.
package prefs
