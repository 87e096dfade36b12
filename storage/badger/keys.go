package badger

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec"
	collectionPrefix   = "veccol"
	vectorSeqKey       = "vecseq"
	cachePrefix        = "cache"
	fingerprintPrefix  = "fprint"
)

// makeCollectionKey generates the key holding a collection's dimension.
func makeCollectionKey(collection string) []byte {
	return []byte(collectionPrefix + ":" + collection)
}

// makeVectorPrefix generates the prefix shared by all records of a collection.
// Format: prefix:collection:
func makeVectorPrefix(collection string) []byte {
	return []byte(vectorRecordPrefix + ":" + collection + ":")
}

// makeVectorKey generates a key for a vector record by collection and ID.
// Format: prefix:collection:id
func makeVectorKey(collection, id string) []byte {
	prefix := makeVectorPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}

// makeCacheKey namespaces an opaque cache key.
func makeCacheKey(key []byte) []byte {
	buf := make([]byte, len(cachePrefix)+1+len(key))
	offset := copy(buf, cachePrefix+":")
	copy(buf[offset:], key)
	return buf
}

// makeFingerprintKey generates the key of a fingerprint record.
func makeFingerprintKey(fp string) []byte {
	return []byte(fingerprintPrefix + ":" + fp)
}
