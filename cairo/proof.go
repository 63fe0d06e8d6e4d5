package cairo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cairn-zk/cairn"
	"github.com/cairn-zk/cairn/logger"
	"github.com/cairn-zk/cairn/stark"
)

// Proof is a complete proof of one execution: the claims describing the
// committed traces, the claimed logup sums, and the low level proof.
type Proof struct {
	Claim            Claim
	InteractionClaim InteractionClaim
	Stark            stark.Proof
}

// proofMeta is the first serialized section.
type proofMeta struct {
	Version string
}

const (
	numProofSections = 4
	proofHeaderLen   = 8 * numProofSections

	// maxProofSection bounds a single serialized section, so a corrupt
	// header cannot ask for an absurd allocation.
	maxProofSection = 1 << 30
)

// WriteTo serializes the proof. The four sections (meta, claim, interaction
// claim, stark proof) are CBOR encoded in parallel and written after a
// fixed size header carrying their lengths.
func (p *Proof) WriteTo(w io.Writer) (int64, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return 0, err
	}

	sections := [numProofSections]any{
		proofMeta{Version: cairn.Version.String()},
		&p.Claim,
		&p.InteractionClaim,
		&p.Stark,
	}
	var bufs [numProofSections]bytes.Buffer
	var g errgroup.Group
	for i := range sections {
		g.Go(func() error {
			return em.NewEncoder(&bufs[i]).Encode(sections[i])
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var header [proofHeaderLen]byte
	for i := range bufs {
		binary.LittleEndian.PutUint64(header[8*i:], uint64(bufs[i].Len()))
	}
	n := int64(0)
	k, err := w.Write(header[:])
	n += int64(k)
	if err != nil {
		return n, err
	}
	for i := range bufs {
		k64, err := bufs[i].WriteTo(w)
		n += k64
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFrom deserializes a proof. The meta section is decoded first so the
// version can be checked before the large sections are touched; the
// remaining sections are then decoded in parallel.
func (p *Proof) ReadFrom(r io.Reader) (int64, error) {
	var header [proofHeaderLen]byte
	n := int64(0)
	k, err := io.ReadFull(r, header[:])
	n += int64(k)
	if err != nil {
		return n, err
	}

	var raw [numProofSections][]byte
	for i := range raw {
		length := binary.LittleEndian.Uint64(header[8*i:])
		if length > maxProofSection {
			return n, fmt.Errorf("cairo: proof section %d declares %d bytes, maximum %d", i, length, maxProofSection)
		}
		raw[i] = make([]byte, length)
		k, err := io.ReadFull(r, raw[i])
		n += int64(k)
		if err != nil {
			return n, err
		}
	}

	dm, err := cbor.DecOptions{
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		return n, err
	}

	var meta proofMeta
	if err := dm.Unmarshal(raw[0], &meta); err != nil {
		return n, fmt.Errorf("cairo: proof meta section: %w", err)
	}
	if err := checkProofVersion(meta.Version); err != nil {
		return n, err
	}

	*p = Proof{}
	targets := [numProofSections - 1]any{&p.Claim, &p.InteractionClaim, &p.Stark}
	var g errgroup.Group
	for i := range targets {
		g.Go(func() error {
			return dm.Unmarshal(raw[i+1], targets[i])
		})
	}
	if err := g.Wait(); err != nil {
		return n, err
	}
	return n, nil
}

// checkProofVersion parses the serialized version and warns when it differs
// from the binary's. Illegal version strings are an error; a plain mismatch
// is not, since the proof format may still agree.
func checkProofVersion(v string) error {
	objectVersion, err := semver.Parse(v)
	if err != nil {
		return fmt.Errorf("cairo: proof version %q: %w", v, err)
	}
	if cairn.Version.Compare(objectVersion) != 0 {
		log := logger.Logger()
		log.Warn().
			Str("binary", cairn.Version.String()).
			Str("proof", objectVersion.String()).
			Msg("proof serialized with a different version. there are no guarantees on compatibility")
	}
	return nil
}
