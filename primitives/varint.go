package primitives

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadVarInt reads a Bitcoin-style compact-size integer (spec §4.2):
// values below 0xFD are a single byte; 0xFD/0xFE/0xFF prefix a
// little-endian u16/u32/u64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}
	switch prefix[0] {
	case 0xFD:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("primitives: short varint(u16): %w", err)
		}
		return uint64(binary.LittleEndian.Uint16(b[:])), nil
	case 0xFE:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("primitives: short varint(u32): %w", err)
		}
		return uint64(binary.LittleEndian.Uint32(b[:])), nil
	case 0xFF:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("primitives: short varint(u64): %w", err)
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteVarInt writes v using the same compact-size encoding ReadVarInt
// understands. Used by WriteVarBytes and by tests that build wire
// fixtures; TxID hashes the raw bytes as read, not a re-serialization.
func WriteVarInt(w io.Writer, v uint64) error {
	switch {
	case v < 0xFD:
		_, err := w.Write([]byte{byte(v)})
		return err
	case v <= 0xFFFF:
		var b [3]byte
		b[0] = 0xFD
		binary.LittleEndian.PutUint16(b[1:], uint16(v))
		_, err := w.Write(b[:])
		return err
	case v <= 0xFFFFFFFF:
		var b [5]byte
		b[0] = 0xFE
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		_, err := w.Write(b[:])
		return err
	default:
		var b [9]byte
		b[0] = 0xFF
		binary.LittleEndian.PutUint64(b[1:], v)
		_, err := w.Write(b[:])
		return err
	}
}

// ReadVarBytes reads a varint-prefixed length followed by that many
// opaque bytes — the encoding used for scripts (spec §4.2).
func ReadVarBytes(r io.Reader, maxLen uint64) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("primitives: varbytes length %d exceeds cap %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("primitives: short varbytes (want %d): %w", n, err)
	}
	return buf, nil
}

// WriteVarBytes writes b prefixed with its varint-encoded length.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// maxScriptSize bounds a single script so a corrupt length prefix can't
// force an unbounded allocation while parsing a block file.
const maxScriptSize = 10 * 1024 * 1024
