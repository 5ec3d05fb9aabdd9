// Package fetchcache implements the client-side fetch, cache and poll layer.
//
// A Cache deduplicates concurrent fetches of the same key, keeps successful
// results for a per-call TTL and never stores failures. Poll drives a fetch on
// a fixed interval until cancelled.
//
// Entries are not guaranteed to be fetched exactly once: an entry may be
// refetched after Invalidate, Clear or expiry while an older fetch for the
// same key is still completing.
package fetchcache
