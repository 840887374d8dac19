// Package common holds small, dependency-light helpers shared across the
// rest of the module: binary framing primitives and the invariant-assertion
// idiom used throughout the pool, step and persistence packages.
package common

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Assert panics with a formatted message when cond is false. Reserved for
// invariants that indicate a programming bug (a desynced parent map, a
// step factory missing its own registration) rather than user-facing
// errors, which flow through the errors packages instead.
func Assert(cond bool, format string, p ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, p...))
	}
}

// Blake2b256 hashes data with a 256-bit blake2b digest. Used for the
// schema_hash recorded in snapshot sidecars (see persistence package).
func Blake2b256(data []byte) (ret [32]byte) {
	hash, _ := blake2b.New256(nil)
	if _, err := hash.Write(data); err != nil {
		panic(err)
	}
	copy(ret[:], hash.Sum(nil))
	return
}

// ReadBytes32 reads a uint32 length-prefixed byte slice.
func ReadBytes32(r io.Reader) ([]byte, error) {
	var length uint32
	if err := ReadUint32(r, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	ret := make([]byte, length)
	if _, err := io.ReadFull(r, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// WriteBytes32 writes a uint32 length-prefixed byte slice.
func WriteBytes32(w io.Writer, data []byte) error {
	if len(data) > math.MaxUint32 {
		panic(fmt.Sprintf("WriteBytes32: too long data (%v)", len(data)))
	}
	if err := WriteUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func ReadUint32(r io.Reader, pval *uint32) error {
	var tmp4 [4]byte
	if _, err := io.ReadFull(r, tmp4[:]); err != nil {
		return err
	}
	*pval = binary.LittleEndian.Uint32(tmp4[:])
	return nil
}

func WriteUint32(w io.Writer, val uint32) error {
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], val)
	_, err := w.Write(tmp4[:])
	return err
}

func ReadUint64(r io.Reader, pval *uint64) error {
	var tmp8 [8]byte
	if _, err := io.ReadFull(r, tmp8[:]); err != nil {
		return err
	}
	*pval = binary.LittleEndian.Uint64(tmp8[:])
	return nil
}

func WriteUint64(w io.Writer, val uint64) error {
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], val)
	_, err := w.Write(tmp8[:])
	return err
}

func ReadByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteByte(w io.Writer, val byte) error {
	_, err := w.Write([]byte{val})
	return err
}

// ReadString16 / WriteString16 frame a UTF-8 string with a uint16 length
// prefix — used for step type names and short identifiers on the wire.
func ReadString16(r io.Reader) (string, error) {
	var length uint16
	if err := ReadUint16(r, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func WriteString16(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		panic(fmt.Sprintf("WriteString16: too long string (%v)", len(s)))
	}
	if err := WriteUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func ReadUint16(r io.Reader, pval *uint16) error {
	var tmp2 [2]byte
	if _, err := io.ReadFull(r, tmp2[:]); err != nil {
		return err
	}
	*pval = binary.LittleEndian.Uint16(tmp2[:])
	return nil
}

func WriteUint16(w io.Writer, val uint16) error {
	var tmp2 [2]byte
	binary.LittleEndian.PutUint16(tmp2[:], val)
	_, err := w.Write(tmp2[:])
	return err
}
