package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// GLB container layout constants. All integers are little-endian.
const (
	GLBMagic   = 0x46546C67 // "glTF"
	GLBVersion = 2

	ChunkJSON = 0x4E4F534A // "JSON"
	ChunkBIN  = 0x004E4942 // "BIN\x00"

	glbHeaderSize   = 12
	chunkHeaderSize = 8
)

// GLB container errors.
var (
	ErrInvalidGLBMagic       = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedGLBVersion = errors.New("unsupported GLB version")
	ErrTruncatedGLBData      = errors.New("truncated GLB data")
	ErrGLBLengthMismatch     = errors.New("GLB length field does not match data size")
	ErrMissingJSONChunk      = errors.New("missing JSON chunk")
	ErrGLBTooLarge           = errors.New("GLB container exceeds 4 GiB limit")
)

// EncodeGLB encodes the document and its binary payload into a GLB container:
// a 12-byte header (magic, version, total length), the JSON chunk padded with
// spaces to a 4-byte boundary, and, when bin is non-empty, the BIN chunk
// padded with zeros. The header's length field covers every emitted byte
// including padding.
func EncodeGLB(doc *Document, bin []byte) ([]byte, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}

	jsonPad := pad4(len(jsonData))
	total := glbHeaderSize + chunkHeaderSize + len(jsonData) + jsonPad

	binPad := 0
	if len(bin) > 0 {
		binPad = pad4(len(bin))
		total += chunkHeaderSize + len(bin) + binPad
	}

	if uint64(total) > math.MaxUint32 {
		return nil, ErrGLBTooLarge
	}

	buf := bytes.NewBuffer(make([]byte, 0, total))

	// Header
	writeUint32(buf, GLBMagic)
	writeUint32(buf, GLBVersion)
	writeUint32(buf, uint32(total))

	// JSON chunk, space-padded so trailing bytes stay valid JSON whitespace
	writeUint32(buf, uint32(len(jsonData)+jsonPad))
	writeUint32(buf, ChunkJSON)
	buf.Write(jsonData)
	for i := 0; i < jsonPad; i++ {
		buf.WriteByte(' ')
	}

	// BIN chunk, zero-padded
	if len(bin) > 0 {
		writeUint32(buf, uint32(len(bin)+binPad))
		writeUint32(buf, ChunkBIN)
		buf.Write(bin)
		for i := 0; i < binPad; i++ {
			buf.WriteByte(0)
		}
	}

	return buf.Bytes(), nil
}

// ParseGLB parses a GLB container, returning the decoded document and the
// BIN chunk payload (nil when the container carries none). The header's
// declared length must match the data size exactly.
func ParseGLB(data []byte) (*Document, []byte, error) {
	if len(data) < glbHeaderSize {
		return nil, nil, ErrTruncatedGLBData
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != GLBMagic {
		return nil, nil, ErrInvalidGLBMagic
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != GLBVersion {
		return nil, nil, fmt.Errorf("%w: got %d", ErrUnsupportedGLBVersion, version)
	}

	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) != len(data) {
		return nil, nil, fmt.Errorf("%w: header declares %d, have %d bytes",
			ErrGLBLengthMismatch, total, len(data))
	}

	var jsonChunk, binChunk []byte
	offset := glbHeaderSize
	for offset < len(data) {
		if offset+chunkHeaderSize > len(data) {
			return nil, nil, ErrTruncatedGLBData
		}
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		ctype := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += chunkHeaderSize

		if offset+length > len(data) {
			return nil, nil, ErrTruncatedGLBData
		}
		payload := data[offset : offset+length]
		offset += length

		switch ctype {
		case ChunkJSON:
			jsonChunk = payload
		case ChunkBIN:
			binChunk = payload
		default:
			// Unknown chunk types are skipped per the container rules.
		}
	}

	if jsonChunk == nil {
		return nil, nil, ErrMissingJSONChunk
	}

	doc := &Document{}
	if err := json.Unmarshal(jsonChunk, doc); err != nil {
		return nil, nil, fmt.Errorf("decoding document: %w", err)
	}

	return doc, binChunk, nil
}

// ParseGLBFile parses a GLB container from a file.
func ParseGLBFile(path string) (*Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading GLB file: %w", err)
	}
	return ParseGLB(data)
}

// pad4 returns the byte count needed to align n to a 4-byte boundary.
func pad4(n int) int {
	if r := n % 4; r != 0 {
		return 4 - r
	}
	return 0
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
