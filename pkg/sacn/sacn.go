// Package sacn provides E1.31 (sACN) data-packet encoding and decoding.
package sacn

import (
	"encoding/binary"
	"net"
)

const (
	// Port is the standard sACN UDP port.
	Port = 5568

	// MinUniverse and MaxUniverse bound a valid E1.31 universe number.
	MinUniverse = 1
	MaxUniverse = 63999

	// MaxPriority is the highest valid E1.31 source priority.
	MaxPriority = 200

	vectorRootE131Data   = 0x00000004
	vectorE131DataPacket = 0x00000002
	vectorDMPSetProperty = 0x02

	sourceNameLen = 64
	cidLen        = 16

	rootFlagsLenOff  = 16
	rootVectorOff    = 18
	rootCIDOff       = 22
	rootLayerLen     = 38 // bytes 0..38, i.e. offset where the framing layer begins
	framingVectorOff = 40
	framingNameOff   = 44
	framingPrioOff   = 108
	framingSyncOff   = 109
	framingSeqOff    = 111
	framingOptsOff   = 112
	framingUnivOff   = 113
	framingLayerEnd  = 115 // offset where the DMP layer begins
	dmpVectorOff     = 117
	dmpAddrTypeOff   = 118
	dmpFirstAddrOff  = 119
	dmpIncrementOff  = 121
	dmpCountOff      = 123
	dmpStartCodeOff  = 125
	dmpDataOff       = 126
)

// acnPacketIdentifier is the 12-byte "ASC-E1.17" preamble identifier.
var acnPacketIdentifier = [12]byte{
	0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00,
}

// DataPacket is the decoded form of an E1.31 data packet.
type DataPacket struct {
	CID        [16]byte
	SourceName string
	Priority   byte
	Sequence   byte
	Options    byte
	Universe   uint16
	StartCode  byte
	DMXData    []byte
}

// EncodeDataPacket builds an E1.31 data packet per the canonical layering:
// root length = 2 + 4 + 16 + framingLen, flags = 0x7000 | (len & 0x0FFF).
// It panics if cid is not 16 bytes, dmx is not 1..512 bytes, universe is out
// of [1,63999], or priority exceeds 200 — all precondition violations.
func EncodeDataPacket(cid [16]byte, sourceName string, priority, sequence, options byte, universe uint16, startCode byte, dmx []byte) []byte {
	if len(dmx) < 1 || len(dmx) > 512 {
		panic("sacn: EncodeDataPacket requires 1..512 bytes of DMX data")
	}
	if universe < MinUniverse || universe > MaxUniverse {
		panic("sacn: EncodeDataPacket universe out of range")
	}
	if priority > MaxPriority {
		panic("sacn: EncodeDataPacket priority out of range")
	}

	slotCount := len(dmx) + 1 // +1 for the start code
	dmpLen := 11 + len(dmx) + 1
	framingLen := 77 + dmpLen // fixed 77-byte framing header plus the DMP layer
	rootLen := 2 + 4 + cidLen + framingLen
	pktLen := rootFlagsLenOff + rootLen

	buf := make([]byte, pktLen)

	// Root layer.
	binary.BigEndian.PutUint16(buf[0:2], 0x0010) // preamble size
	binary.BigEndian.PutUint16(buf[2:4], 0x0000) // post-amble size
	copy(buf[4:16], acnPacketIdentifier[:])
	binary.BigEndian.PutUint16(buf[rootFlagsLenOff:rootFlagsLenOff+2], 0x7000|uint16(rootLen&0x0FFF))
	binary.BigEndian.PutUint32(buf[rootVectorOff:rootVectorOff+4], vectorRootE131Data)
	copy(buf[rootCIDOff:rootCIDOff+cidLen], cid[:])

	// Framing layer.
	binary.BigEndian.PutUint16(buf[rootLayerLen:rootLayerLen+2], 0x7000|uint16(framingLen&0x0FFF))
	binary.BigEndian.PutUint32(buf[framingVectorOff:framingVectorOff+4], vectorE131DataPacket)
	name := sourceName
	if len(name) > sourceNameLen {
		name = name[:sourceNameLen]
	}
	copy(buf[framingNameOff:framingNameOff+sourceNameLen], name)
	buf[framingPrioOff] = priority
	binary.BigEndian.PutUint16(buf[framingSyncOff:framingSyncOff+2], 0)
	buf[framingSeqOff] = sequence
	buf[framingOptsOff] = options
	binary.BigEndian.PutUint16(buf[framingUnivOff:framingUnivOff+2], universe)

	// DMP layer.
	binary.BigEndian.PutUint16(buf[framingLayerEnd:framingLayerEnd+2], 0x7000|uint16(dmpLen&0x0FFF))
	buf[dmpVectorOff] = vectorDMPSetProperty
	buf[dmpAddrTypeOff] = 0xA1
	binary.BigEndian.PutUint16(buf[dmpFirstAddrOff:dmpFirstAddrOff+2], 0x0000)
	binary.BigEndian.PutUint16(buf[dmpIncrementOff:dmpIncrementOff+2], 0x0001)
	binary.BigEndian.PutUint16(buf[dmpCountOff:dmpCountOff+2], uint16(slotCount))
	buf[dmpStartCodeOff] = startCode
	copy(buf[dmpDataOff:], dmx)

	return buf
}

// DecodeDataPacket validates each layer's flag nibble, vector and layout,
// returning ok=false on any mismatch.
func DecodeDataPacket(buf []byte) (DataPacket, bool) {
	if len(buf) < dmpDataOff+1 {
		return DataPacket{}, false
	}
	for i, b := range acnPacketIdentifier {
		if buf[4+i] != b {
			return DataPacket{}, false
		}
	}

	rootFlagsLen := binary.BigEndian.Uint16(buf[rootFlagsLenOff : rootFlagsLenOff+2])
	if rootFlagsLen&0xF000 != 0x7000 {
		return DataPacket{}, false
	}
	if binary.BigEndian.Uint32(buf[rootVectorOff:rootVectorOff+4]) != vectorRootE131Data {
		return DataPacket{}, false
	}

	framingFlagsLen := binary.BigEndian.Uint16(buf[rootLayerLen : rootLayerLen+2])
	if framingFlagsLen&0xF000 != 0x7000 {
		return DataPacket{}, false
	}
	if binary.BigEndian.Uint32(buf[framingVectorOff:framingVectorOff+4]) != vectorE131DataPacket {
		return DataPacket{}, false
	}

	dmpFlagsLen := binary.BigEndian.Uint16(buf[framingLayerEnd : framingLayerEnd+2])
	if dmpFlagsLen&0xF000 != 0x7000 {
		return DataPacket{}, false
	}
	if buf[dmpVectorOff] != vectorDMPSetProperty {
		return DataPacket{}, false
	}
	if buf[dmpAddrTypeOff] != 0xA1 {
		return DataPacket{}, false
	}
	if binary.BigEndian.Uint16(buf[dmpFirstAddrOff:dmpFirstAddrOff+2]) != 0x0000 {
		return DataPacket{}, false
	}
	if binary.BigEndian.Uint16(buf[dmpIncrementOff:dmpIncrementOff+2]) != 0x0001 {
		return DataPacket{}, false
	}

	slotCount := binary.BigEndian.Uint16(buf[dmpCountOff : dmpCountOff+2])
	if slotCount < 1 || slotCount > 513 {
		return DataPacket{}, false
	}
	dmxLen := int(slotCount) - 1
	if len(buf) < dmpDataOff+dmxLen {
		return DataPacket{}, false
	}

	universe := binary.BigEndian.Uint16(buf[framingUnivOff : framingUnivOff+2])
	if universe < MinUniverse || universe > MaxUniverse {
		return DataPacket{}, false
	}
	priority := buf[framingPrioOff]
	if priority > MaxPriority {
		return DataPacket{}, false
	}

	var p DataPacket
	copy(p.CID[:], buf[rootCIDOff:rootCIDOff+cidLen])
	p.SourceName = readNullTerminated(buf[framingNameOff : framingNameOff+sourceNameLen])
	p.Priority = priority
	p.Sequence = buf[framingSeqOff]
	p.Options = buf[framingOptsOff]
	p.Universe = universe
	p.StartCode = buf[dmpStartCodeOff]
	p.DMXData = make([]byte, dmxLen)
	copy(p.DMXData, buf[dmpDataOff:dmpDataOff+dmxLen])

	return p, true
}

func readNullTerminated(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// MulticastAddr returns the standard E1.31 multicast address for a universe:
// 239.255.(U>>8).(U&0xFF).
func MulticastAddr(universe uint16) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(universe>>8), byte(universe&0xFF)),
		Port: Port,
	}
}
