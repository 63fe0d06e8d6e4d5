// Package ioutils wraps the intcomp integer codecs with length prefixed
// framing for the integer heavy sections of memory dumps.
package ioutils

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ronanh/intcomp"
)

// CompressAndWriteUints32 compresses input and writes the framed stream to w,
// returning the number of bytes written.
func CompressAndWriteUints32(w io.Writer, input []uint32) (int64, error) {
	buf := intcomp.CompressUint32(input, nil)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(buf))); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return 8, err
	}
	return 8 + 4*int64(len(buf)), nil
}

// CompressAndWriteUints64 compresses input and writes the framed stream to w,
// returning the number of bytes written.
func CompressAndWriteUints64(w io.Writer, input []uint64) (int64, error) {
	buf := intcomp.CompressUint64(input, nil)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(buf))); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return 8, err
	}
	return 8 + 8*int64(len(buf)), nil
}

// ReadAndDecompressUints32 reads a framed stream from r and decompresses it.
// Streams longer than maxWords compressed words are rejected before any
// allocation, so r may be untrusted.
func ReadAndDecompressUints32(r io.Reader, maxWords uint64) (int64, []uint32, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, nil, err
	}
	if length > maxWords {
		return 8, nil, fmt.Errorf("ioutils: stream of %d words exceeds limit %d", length, maxWords)
	}
	buffer := make([]uint32, length)
	if err := binary.Read(r, binary.LittleEndian, buffer); err != nil {
		return 8, nil, err
	}
	return 8 + 4*int64(length), intcomp.UncompressUint32(buffer, nil), nil
}

// ReadAndDecompressUints64 reads a framed stream from r and decompresses it.
// Streams longer than maxWords compressed words are rejected before any
// allocation, so r may be untrusted.
func ReadAndDecompressUints64(r io.Reader, maxWords uint64) (int64, []uint64, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, nil, err
	}
	if length > maxWords {
		return 8, nil, fmt.Errorf("ioutils: stream of %d words exceeds limit %d", length, maxWords)
	}
	buffer := make([]uint64, length)
	if err := binary.Read(r, binary.LittleEndian, buffer); err != nil {
		return 8, nil, err
	}
	return 8 + 8*int64(length), intcomp.UncompressUint64(buffer, nil), nil
}
