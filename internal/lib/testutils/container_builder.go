package testutils

import (
	"encoding/binary"
	"math/bits"
)

// Layout constants of the synthetic container images the tests build. The
// builder enciphers hashes and splits the bytecode the same way real
// containers are produced, but independently of the parser, so the two
// implementations cross-check each other.
const (
	builderHeaderSize = 0x50
	builderBlockSize  = 0x4000

	// stored offsets carry flag bits in the upper byte; the builder always
	// sets some so parsers that forget to mask fail loudly
	builderOffsetFlags = 0xAA000000
)

// BuildContainer serializes a minimal script container holding the given
// native table and flat bytecode. With wrapped set, the image is prefixed
// with the 16-byte resource wrapper.
func BuildContainer(table []uint64, code []byte, wrapped bool) []byte {
	numBlocks := (len(code) + builderBlockSize - 1) / builderBlockSize
	blockTableOffset := builderHeaderSize
	codeOffset := blockTableOffset + 8*numBlocks
	nativeOffset := codeOffset + len(code)

	img := make([]byte, nativeOffset+8*len(table))
	putU32 := func(pos int, v uint32) { binary.LittleEndian.PutUint32(img[pos:], v) }

	putU32(0x10, uint32(blockTableOffset)|builderOffsetFlags)
	putU32(0x1C, uint32(len(code)))
	putU32(0x2C, uint32(len(table)))
	putU32(0x40, uint32(nativeOffset)|builderOffsetFlags)

	for i := 0; i < numBlocks; i++ {
		putU32(blockTableOffset+8*i, uint32(codeOffset+i*builderBlockSize)|builderOffsetFlags)
	}
	copy(img[codeOffset:], code)
	for i, hash := range table {
		rot := (len(code) + i) % 64
		binary.LittleEndian.PutUint64(img[nativeOffset+8*i:], bits.RotateLeft64(hash, -rot))
	}

	if !wrapped {
		return img
	}
	out := make([]byte, 0x10+len(img))
	copy(out, "RSC7")
	copy(out[0x10:], img)
	return out
}

// NativeCall returns the bytecode of a single native call against the given
// table index.
func NativeCall(index uint16) []byte {
	return []byte{44, 0, byte(index >> 8), byte(index)}
}

// Filler returns n bytes of an opcode that carries no operands, useful for
// spacing call sites apart.
func Filler(n int) []byte {
	return make([]byte, n)
}

// Bytecode concatenates the given fragments into one flat bytecode stream.
func Bytecode(fragments ...[]byte) []byte {
	var code []byte
	for _, f := range fragments {
		code = append(code, f...)
	}
	return code
}
