package store

import (
	"bytes"
	"sync"
)

// Key layout:
//
//	<prefix><id>                              primary record
//	<prefix>idx:<name>:<value>                unique index, value = id
//	<prefix>lkp:<name>:<value>\x00<id>        lookup index, empty value
const (
	indexMarker  = "idx:"
	lookupMarker = "lkp:"
	lookupSep    = 0x00
)

// keyPool provides reusable byte slices for building transient keys.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// buildKey constructs a primary key using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
func buildKey(prefix, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, id...)
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// indexKey builds a unique-index key. The result is owned by the caller.
func indexKey(prefix, name, value string) []byte {
	return []byte(prefix + indexMarker + name + ":" + value)
}

// lookupPrefix is the scan prefix for every id filed under value.
func lookupPrefix(prefix, name, value string) []byte {
	b := make([]byte, 0, len(prefix)+len(lookupMarker)+len(name)+len(value)+2)
	b = append(b, prefix...)
	b = append(b, lookupMarker...)
	b = append(b, name...)
	b = append(b, ':')
	b = append(b, value...)
	return append(b, lookupSep)
}

// lookupKey files id under value.
func lookupKey(prefix, name, value, id string) []byte {
	return append(lookupPrefix(prefix, name, value), id...)
}

// lookupID extracts the id from a lookup key.
func lookupID(key []byte) string {
	i := bytes.LastIndexByte(key, lookupSep)
	if i < 0 {
		return ""
	}
	return string(key[i+1:])
}

// isIndexKey reports whether key under prefix is an index rather than a record.
func isIndexKey(prefix string, key []byte) bool {
	rest := key[len(prefix):]
	return bytes.HasPrefix(rest, []byte(indexMarker)) || bytes.HasPrefix(rest, []byte(lookupMarker))
}
