package badger

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// fileRecord is the persisted description of one file.
//
// Records are XDR-encoded: the layout is fixed, compact and decodes without
// reflection surprises across versions of the tool.
type fileRecord struct {
	// Name is the flat file name (duplicated from the name index for
	// debugging and consistency checks).
	Name string

	// Size is the logical file size in bytes.
	Size uint64

	// ChunkSize is the chunk size the content was written with.
	ChunkSize uint32
}

func encodeFileRecord(rec *fileRecord) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, rec); err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeFileRecord(data []byte) (*fileRecord, error) {
	var rec fileRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode file record: %w", err)
	}
	return &rec, nil
}
