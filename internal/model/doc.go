// Package model describes processing models (fixed hardware units and dynamic
// software processors) and the read-only catalog used to resolve them.
//
// The task graph never owns model data: validation receives a catalog as a
// parameter and only asks it for input/output channel counts. Catalogs are
// loaded from TOML or JSON files, or taken from the embedded built-in set that
// mirrors the reference hardware shipped with the platform.
//
// ModelValue and MultiChannelValue are the parameter value types carried by
// instance nodes; both keep the untagged wire shape (a bare string, number, or
// bool, and a per-channel list with nulls for unset channels).
package model
