// Package ids defines the opaque identifier types shared by the task graph,
// the model catalog, and the owning task store.
//
// Every node kind gets its own nominal string type so a mixer id can never be
// passed where a track id is expected, even when the underlying strings are
// equal. Composite identifiers (ModelID, FixedInstanceID) carry a compact
// slash-separated text form that round-trips through JSON, CBOR, TOML keys,
// and command-line flags.
package ids
