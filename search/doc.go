// Package search retrieves conversations by semantic similarity or by
// creation-date range.
//
// Semantic search embeds the raw query text, asks storage for the nearest
// stored conversation vectors, then hydrates each hit with its metadata and
// full message set. Ranking is decided entirely by the store's cosine
// distance ordering; hydration never reorders.
package search
