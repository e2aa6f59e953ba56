package store

import (
	"strings"
	"sync"
)

const (
	tablePrefix = "meta/table/"
	rowPrefix   = "t/"
	sep         = '/'
)

// keyPool provides reusable byte slices for read-path keys.
var keyPool = sync.Pool{
	New: func() any {
		// Covers prefix + table + partition + row for typical ids.
		return make([]byte, 0, 128)
	},
}

// buildRowKey constructs "t/{table}/{partition}/{row}" in a pooled buffer.
// The returned slice is valid until releaseKey is called. Pooled keys must
// only be used for reads: badger keeps write keys until commit.
func buildRowKey(table, partition, row string) []byte {
	buf, _ := keyPool.Get().([]byte)
	return appendRowKey(buf[:0], table, partition, row)
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// rowKey allocates a fresh key for writes.
func rowKey(table, partition, row string) []byte {
	return appendRowKey(make([]byte, 0, len(rowPrefix)+len(table)+len(partition)+len(row)+2), table, partition, row)
}

// partitionPrefix returns "t/{table}/{partition}/".
func partitionPrefix(table, partition string) []byte {
	buf := make([]byte, 0, len(rowPrefix)+len(table)+len(partition)+2)
	buf = append(buf, rowPrefix...)
	buf = append(buf, table...)
	buf = append(buf, sep)
	buf = append(buf, partition...)
	return append(buf, sep)
}

func appendRowKey(buf []byte, table, partition, row string) []byte {
	buf = append(buf, rowPrefix...)
	buf = append(buf, table...)
	buf = append(buf, sep)
	buf = append(buf, partition...)
	buf = append(buf, sep)
	return append(buf, row...)
}

func tableKey(name string) []byte {
	return []byte(tablePrefix + name)
}

// validKey rejects empty keys and the characters the store reserves.
func validKey(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/\\#?")
}
