// Package cache keeps search results and conversation sessions in a
// TTL-bounded storage.CacheStore. Store failures never reach callers:
// reads degrade to a miss and writes are dropped, both with a warning.
package cache
