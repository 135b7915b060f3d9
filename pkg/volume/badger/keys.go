package badger

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// Data Type        Prefix   Key Format                 Value Type
// ===================================================================
// Name Index       "n:"     n:<name>                   file UUID (16 bytes)
// File Record      "f:"     f:<uuid>                   fileRecord (XDR)
// Content Chunk    "c:"     c:<uuid>:<index>           raw bytes (<= chunk size)
//
// Files are identified by a random UUID so that deleting and recreating a
// name never aliases stale chunks. Chunk indices are big-endian uint32 so a
// prefix scan visits chunks in file order.

const (
	prefixName   = "n:"
	prefixFile   = "f:"
	prefixChunk  = "c:"
	keySeparator = ':'
)

func keyName(name string) []byte {
	return []byte(prefixName + name)
}

func keyFile(id uuid.UUID) []byte {
	key := make([]byte, 0, len(prefixFile)+len(id))
	key = append(key, prefixFile...)
	return append(key, id[:]...)
}

func keyChunkPrefix(id uuid.UUID) []byte {
	key := make([]byte, 0, len(prefixChunk)+len(id)+1)
	key = append(key, prefixChunk...)
	key = append(key, id[:]...)
	return append(key, keySeparator)
}

func keyChunk(id uuid.UUID, index uint32) []byte {
	key := keyChunkPrefix(id)
	return binary.BigEndian.AppendUint32(key, index)
}
