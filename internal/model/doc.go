// Package model defines the data structures shared by the discovery client:
//   - DiscoveredElement and Result: what a discovery round-trip produced
//   - LinkConfig, Group, GroupType and TagSettings: the persisted
//     extraction configuration a URL resolves to
//   - Session: one discovery as seen by the post-discovery pipeline
//
// All types serialize to the JSON shapes used on the wire and in the link
// configuration document.
package model
