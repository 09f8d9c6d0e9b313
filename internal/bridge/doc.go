// Package bridge connects the sync core to a companion device.
//
// Inbound commands arrive as JSON, are parsed once into a closed set of
// Command types, and are applied one at a time by a FIFO command loop.
// Outbound traffic goes through a Relay: tagged messages (authorization,
// day_state, error) are delivered best-effort and dropped when the peer is
// unreachable, while the application-context payload is persisted first
// and delivered whenever the peer next becomes reachable.
//
// The context payload is encoded as canonical JSON (sorted keys, NFC
// strings) and identified by a domain-separated SHA-256 so identical
// payloads are not resent.
package bridge
