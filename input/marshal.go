package input

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// inputBody is the CBOR encoded section of a dump. The memory follows as its
// own compressed stream.
type inputBody struct {
	Instructions          Instructions
	PublicMemoryAddresses []uint32
	RangeCheckBuiltin     Segment
}

// maxBodyBytes bounds the CBOR section of a dump.
const maxBodyBytes = 1 << 30

// WriteTo dumps the bundle: an 8 byte length, the CBOR body, then the memory
// in its compressed dump format.
func (in *Input) WriteTo(w io.Writer) (int64, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return 0, err
	}
	body, err := em.Marshal(inputBody{
		Instructions:          in.Instructions,
		PublicMemoryAddresses: in.PublicMemoryAddresses,
		RangeCheckBuiltin:     in.RangeCheckBuiltin,
	})
	if err != nil {
		return 0, err
	}

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(body)))
	n := int64(0)
	k, err := w.Write(header[:])
	n += int64(k)
	if err != nil {
		return n, err
	}
	k, err = w.Write(body)
	n += int64(k)
	if err != nil {
		return n, err
	}
	m, err := in.Mem.WriteTo(w)
	return n + m, err
}

// ReadFrom restores a dump produced by WriteTo, replacing the receiver's
// contents.
func (in *Input) ReadFrom(r io.Reader) (int64, error) {
	var header [8]byte
	n := int64(0)
	k, err := io.ReadFull(r, header[:])
	n += int64(k)
	if err != nil {
		return n, err
	}
	length := binary.LittleEndian.Uint64(header[:])
	if length > maxBodyBytes {
		return n, fmt.Errorf("input: dump body declares %d bytes, maximum %d", length, maxBodyBytes)
	}
	raw := make([]byte, length)
	k, err = io.ReadFull(r, raw)
	n += int64(k)
	if err != nil {
		return n, err
	}

	dm, err := cbor.DecOptions{
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		return n, err
	}
	var body inputBody
	if err := dm.Unmarshal(raw, &body); err != nil {
		return n, fmt.Errorf("input: dump body: %w", err)
	}

	in.Instructions = body.Instructions
	in.PublicMemoryAddresses = body.PublicMemoryAddresses
	in.RangeCheckBuiltin = body.RangeCheckBuiltin
	in.Mem = NewMemory()
	m, err := in.Mem.ReadFrom(r)
	return n + m, err
}
