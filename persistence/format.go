package persistence

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/docweave/docweave/common"
	"github.com/docweave/docweave/step"
)

// recordMagic tags every log record (spec.md §4.6's layout diagram).
const recordMagic = "MFLG"

const recordHeaderLen = 4 + 8 + 4 // magic + lsn + len
const recordTrailerLen = 4        // crc32

// encodeFrames serializes steps as the length-prefixed frame list spec.md
// §4.6 describes: a count, then each step's wire name and its own
// Serialize() payload, so the step factory registry can pick the right
// decoder at replay time.
func encodeFrames(steps []step.Step) ([]byte, error) {
	var buf bytes.Buffer
	if err := common.WriteUint32(&buf, uint32(len(steps))); err != nil {
		return nil, err
	}
	for _, s := range steps {
		data, err := s.Serialize()
		if err != nil {
			return nil, err
		}
		if err := common.WriteString16(&buf, s.Name()); err != nil {
			return nil, err
		}
		if err := common.WriteBytes32(&buf, data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeFrames is encodeFrames's inverse, reconstructing each Step through
// the step factory registry (step.Decode).
func decodeFrames(data []byte) ([]step.Step, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := common.ReadUint32(r, &count); err != nil {
		return nil, err
	}
	steps := make([]step.Step, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := common.ReadString16(r)
		if err != nil {
			return nil, err
		}
		payload, err := common.ReadBytes32(r)
		if err != nil {
			return nil, err
		}
		s, err := step.Decode(name, payload)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// encodeRecord builds one on-disk record: magic, lsn, compressed-length,
// zstd(frames), crc32 of the compressed payload (spec.md §4.6's diagram).
func encodeRecord(enc *zstd.Encoder, lsn uint64, steps []step.Step) ([]byte, error) {
	frames, err := encodeFrames(steps)
	if err != nil {
		return nil, err
	}
	compressed := enc.EncodeAll(frames, nil)

	out := make([]byte, 0, recordHeaderLen+len(compressed)+recordTrailerLen)
	out = append(out, recordMagic...)
	var lsnBuf [8]byte
	binary.LittleEndian.PutUint64(lsnBuf[:], lsn)
	out = append(out, lsnBuf[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
	out = append(out, lenBuf[:]...)
	out = append(out, compressed...)

	sum := crc32.ChecksumIEEE(compressed)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], sum)
	out = append(out, crcBuf[:]...)
	return out, nil
}

// readRecord reads and validates one record from r. A clean end of stream
// (no bytes at all before the magic) returns io.EOF; any other truncation
// or malformed tail returns io.ErrUnexpectedEOF, both of which recovery
// treats as "stop cleanly, tolerate partial tail" (spec.md §4.6 point 3).
// A bad magic or CRC mismatch on an otherwise complete record returns
// LogCorrupt.
func readRecord(r io.Reader, dec *zstd.Decoder) (uint64, []step.Step, error) {
	var magicBuf [4]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		return 0, nil, err
	}
	if string(magicBuf[:]) != recordMagic {
		return 0, nil, newLogCorrupt(0, "bad magic %q", magicBuf[:])
	}

	var lsn uint64
	if err := common.ReadUint64(r, &lsn); err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}
	var length uint32
	if err := common.ReadUint32(r, &length); err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}
	compressed := make([]byte, length)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}

	want := binary.LittleEndian.Uint32(crcBuf[:])
	if got := crc32.ChecksumIEEE(compressed); got != want {
		return lsn, nil, newLogCorrupt(lsn, "crc mismatch: want %x got %x", want, got)
	}

	frames, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return lsn, nil, newLogCorrupt(lsn, "zstd decode: %v", err)
	}
	steps, err := decodeFrames(frames)
	if err != nil {
		return lsn, nil, newLogCorrupt(lsn, "decode frames: %v", err)
	}
	return lsn, steps, nil
}
