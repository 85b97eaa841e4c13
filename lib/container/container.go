// Package container implements parsing of compiled script containers. A
// container carries a table of native function hashes, enciphered with a
// rotation keyed on the code length, and bytecode split into fixed-size
// blocks. Parsing recovers the deciphered table and the ordered sequence of
// native call sites together with their inter-call byte distances.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/spf13/afero"
)

// resourceTag marks containers wrapped in a 16-byte resource header. All
// stored offsets are then shifted by the wrapper size.
var resourceTag = []byte("RSC7") //nolint:gochecknoglobals

const (
	resourceHeaderSize = 0x10

	codeBlocksOffsetField = 0x10
	codeLenField          = 0x1C
	nativeCountField      = 0x2C
	nativeOffsetField     = 0x40

	// The upper byte of stored 32-bit offsets holds flags, not address bits.
	offsetMask = 0x00FFFFFF

	codeBlockSize = 0x4000
)

// ErrTruncated is returned when a container ends before one of its tables.
var ErrTruncated = errors.New("truncated container")

// Call is a single native invocation site in the flattened bytecode. Index
// points into the container's native table. Delta is the byte distance from
// the previous call site's opcode, 0 for the first one.
type Call struct {
	Index uint16
	Delta uint32
}

// Container is one parsed script file.
type Container struct {
	NativeTable []uint64
	Calls       []Call
}

// ParseFile reads and parses a single container from the given filesystem.
func ParseFile(fsys afero.Fs, path string) (*Container, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a container image held in memory.
func Parse(data []byte) (*Container, error) {
	im := image{data: data}
	if bytes.HasPrefix(data, resourceTag) {
		im.base = resourceHeaderSize
	}

	codeBlocksOffset, err := im.fieldU32(codeBlocksOffsetField)
	if err != nil {
		return nil, err
	}
	codeBlocksOffset &= offsetMask
	codeLen, err := im.fieldU32(codeLenField)
	if err != nil {
		return nil, err
	}
	nativeCount, err := im.fieldU32(nativeCountField)
	if err != nil {
		return nil, err
	}
	nativeOffset, err := im.fieldU32(nativeOffsetField)
	if err != nil {
		return nil, err
	}
	nativeOffset &= offsetMask

	table, err := im.nativeTable(nativeOffset, nativeCount, codeLen)
	if err != nil {
		return nil, err
	}

	code, err := im.codeBlocks(codeBlocksOffset, codeLen)
	if err != nil {
		return nil, err
	}

	calls := walkCalls(code)
	for _, call := range calls {
		if int(call.Index) >= len(table) {
			return nil, fmt.Errorf("call site references native %d outside table of %d entries",
				call.Index, len(table))
		}
	}

	return &Container{NativeTable: table, Calls: calls}, nil
}

// CallCount reports how many call sites resolve to the given native hash.
func (c *Container) CallCount(hash uint64) int {
	n := 0
	for _, call := range c.Calls {
		if c.NativeTable[call.Index] == hash {
			n++
		}
	}
	return n
}

// image is a raw container with the optional resource wrapper accounted for.
// Header fields live at fixed positions relative to the wrapped start, while
// stored offsets address the file with the wrapper size added back.
type image struct {
	data []byte
	base uint32
}

func (im image) fieldU32(pos uint32) (uint32, error) {
	return im.absU32(im.base + pos)
}

func (im image) absU32(pos uint32) (uint32, error) {
	if uint64(pos)+4 > uint64(len(im.data)) {
		return 0, fmt.Errorf("%w: u32 at 0x%X", ErrTruncated, pos)
	}
	return binary.LittleEndian.Uint32(im.data[pos : pos+4]), nil
}

func (im image) absU64(pos uint32) (uint64, error) {
	if uint64(pos)+8 > uint64(len(im.data)) {
		return 0, fmt.Errorf("%w: u64 at 0x%X", ErrTruncated, pos)
	}
	return binary.LittleEndian.Uint64(im.data[pos : pos+8]), nil
}

// nativeTable deciphers the native hash table. Entry i is stored rotated
// right by (codeLen+i)%64 bits.
func (im image) nativeTable(offset, count, codeLen uint32) ([]uint64, error) {
	table := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := im.absU64(offset + im.base + 8*i)
		if err != nil {
			return nil, err
		}
		table = append(table, bits.RotateLeft64(v, int((codeLen+i)%64)))
	}
	return table, nil
}

// codeBlocks reassembles the flat bytecode from its block table. Every block
// is codeBlockSize bytes except the last, which holds the remainder.
func (im image) codeBlocks(tableOffset, codeLen uint32) ([]byte, error) {
	numBlocks := (codeLen + codeBlockSize - 1) / codeBlockSize
	code := make([]byte, 0, codeLen)
	for i := uint32(0); i < numBlocks; i++ {
		stored, err := im.absU32(tableOffset + im.base + 8*i)
		if err != nil {
			return nil, err
		}
		blockOffset := (stored & offsetMask) + im.base
		size := uint32(codeBlockSize)
		if (i+1)*codeBlockSize >= codeLen {
			if rem := codeLen % codeBlockSize; rem != 0 {
				size = rem
			}
		}
		if uint64(blockOffset)+uint64(size) > uint64(len(im.data)) {
			return nil, fmt.Errorf("%w: code block %d at 0x%X", ErrTruncated, i, blockOffset)
		}
		code = append(code, im.data[blockOffset:blockOffset+size]...)
	}
	return code, nil
}
