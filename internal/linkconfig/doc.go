// Package linkconfig stores the per-URL link configurations in a single JSON
// document and resolves a URL to the configuration that applies to it.
//
// Every entry is keyed by an exact URL string (or a free-form name such as
// "default") and is either a full configuration or an alias
// ({"use_config": "<name>"}). Resolve follows an alias exactly one hop.
//
// The document is read leniently (comments and trailing commas are
// accepted) and always written back as pretty-printed JSON through a
// temporary file and rename.
package linkconfig
