// Package cachedstore decorates a storage.MeasurementStore with a cache-aside
// layer over a cache.Strategy. Reads consult the cache first and fall back to
// the backing store on a miss; a successful store read repopulates the cache.
// Receive writes the new measurement through to the cache so an immediate
// lookup by ID is served without a store round trip, and Delete evicts the
// cached entry before the store delete so a removed measurement is never
// served stale.
//
// The cache is strictly an accelerator: every cache failure is logged,
// counted, and absorbed, and the operation proceeds against the backing
// store. Fan-out queries spanning many sensors bypass the cache entirely -
// their key space is unbounded and their results are rarely re-requested.
package cachedstore
