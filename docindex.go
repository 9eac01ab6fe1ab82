// Package docindex turns local files and web pages into an incrementally
// updatable search index. It crawls sites, chunks markdown along its heading
// structure, stores chunks in an embedded or client-server engine, and ranks
// results by fusing keyword and vector search.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, postgres/, http/).
package docindex
