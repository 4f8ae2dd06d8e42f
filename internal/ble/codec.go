package ble

import "encoding/binary"

// encodeUint16LE encodes v as the little-endian payload used by the
// universe and dmx_start_address characteristics.
func encodeUint16LE(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

// decodeUint16LE is the inverse of encodeUint16LE. ok is false if buf
// is shorter than 2 bytes.
func decodeUint16LE(buf []byte) (uint16, bool) {
	if len(buf) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(buf), true
}
