// Package artnet provides Art-Net 4 packet encoding and decoding for
// ArtPoll, ArtPollReply and ArtDmx.
package artnet

import (
	"encoding/binary"
)

const (
	// OpCodePoll is the Art-Net operation code for ArtPoll.
	OpCodePoll uint16 = 0x2000
	// OpCodePollReply is the Art-Net operation code for ArtPollReply.
	OpCodePollReply uint16 = 0x2100
	// OpCodeDMX is the Art-Net operation code for ArtDmx.
	OpCodeDMX uint16 = 0x5000

	// ProtocolVersion is the Art-Net protocol version carried in every packet.
	ProtocolVersion uint16 = 14

	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454

	// BroadcastAddr is the standard Art-Net broadcast address.
	BroadcastAddr = "255.255.255.255"

	dmxHeaderLen      = 18
	pollLen           = 14
	pollReplyLen      = 239
	shortNameLen      = 18
	longNameLen       = 64
	maxDMXDataLen     = 512
	minDMXDataLen     = 2
	pollReplyIPOff    = 10
	pollReplyPortOff  = 14
	pollReplyFirmOff  = 16
	pollReplyNetOff   = 18
	pollReplySubOff   = 19
	pollReplyStatOff  = 23
	pollReplyShortOff = 26
	pollReplyLongOff  = 44
	pollReplyPortsOff = 172
	pollReplySwInOff  = 186
	pollReplySwOutOff = 190
	pollReplyStyleOff = 200
	pollReplyMACOff   = 201
	pollReplyBindOff  = 207
)

// ArtNetID is the 8-byte literal header identifying every Art-Net packet.
var ArtNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

func hasValidHeader(buf []byte) bool {
	if len(buf) < 8 {
		return false
	}
	for i, b := range ArtNetID {
		if buf[i] != b {
			return false
		}
	}
	return true
}

// ArtDmx is the decoded form of an ArtDmx packet.
type ArtDmx struct {
	Sequence byte
	Physical byte
	Universe uint16 // 15-bit universe, Net<<8 | SubUni
	Data     []byte
}

// EncodeArtDmx encodes an ArtDmx packet. data must have 2 to 512 bytes; an
// odd-length data slice is right-padded with a single zero byte.
func EncodeArtDmx(seq, physical byte, universe uint16, data []byte) []byte {
	if len(data) < minDMXDataLen || len(data) > maxDMXDataLen {
		panic("artnet: EncodeArtDmx requires 2..512 bytes of data")
	}

	padded := data
	if len(data)%2 != 0 {
		padded = make([]byte, len(data)+1)
		copy(padded, data)
	}

	buf := make([]byte, dmxHeaderLen+len(padded))
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpCodeDMX)
	binary.BigEndian.PutUint16(buf[10:12], ProtocolVersion)
	buf[12] = seq
	buf[13] = physical
	buf[14] = byte(universe & 0xFF)        // SubUni
	buf[15] = byte((universe >> 8) & 0x7F) // Net
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(padded)))
	copy(buf[18:], padded)

	return buf
}

// DecodeArtDmx decodes an ArtDmx packet, returning ok=false on any
// header/opcode/length mismatch.
func DecodeArtDmx(buf []byte) (ArtDmx, bool) {
	if len(buf) < dmxHeaderLen || !hasValidHeader(buf) {
		return ArtDmx{}, false
	}
	if binary.LittleEndian.Uint16(buf[8:10]) != OpCodeDMX {
		return ArtDmx{}, false
	}

	subUni := buf[14]
	net := buf[15]
	universe := uint16(net)<<8 | uint16(subUni)
	length := binary.BigEndian.Uint16(buf[16:18])
	if length < minDMXDataLen || length > maxDMXDataLen {
		return ArtDmx{}, false
	}
	if len(buf) < dmxHeaderLen+int(length) {
		return ArtDmx{}, false
	}

	data := make([]byte, length)
	copy(data, buf[dmxHeaderLen:dmxHeaderLen+int(length)])

	return ArtDmx{
		Sequence: buf[12],
		Physical: buf[13],
		Universe: universe,
		Data:     data,
	}, true
}

// ArtPoll is the decoded form of an ArtPoll packet.
type ArtPoll struct {
	TalkToMe     byte
	DiagPriority byte
}

// TalkToMeSendDiagnostics is the non-default TalkToMe flag used by node
// discovery's poll loop (spec: send diagnostics / reply on change).
const TalkToMeSendDiagnostics byte = 0x02

// EncodeArtPoll encodes a 14-byte ArtPoll packet.
func EncodeArtPoll(talkToMe, diagPriority byte) []byte {
	buf := make([]byte, pollLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpCodePoll)
	binary.BigEndian.PutUint16(buf[10:12], ProtocolVersion)
	buf[12] = talkToMe
	buf[13] = diagPriority
	return buf
}

// DecodeArtPoll decodes a 14-byte ArtPoll packet.
func DecodeArtPoll(buf []byte) (ArtPoll, bool) {
	if len(buf) < pollLen || !hasValidHeader(buf) {
		return ArtPoll{}, false
	}
	if binary.LittleEndian.Uint16(buf[8:10]) != OpCodePoll {
		return ArtPoll{}, false
	}
	return ArtPoll{TalkToMe: buf[12], DiagPriority: buf[13]}, true
}

// ArtPollReply is the decoded form of an ArtPollReply packet.
type ArtPollReply struct {
	IP              [4]byte
	Port            uint16
	FirmwareVersion uint16
	NetSwitch       byte
	SubSwitch       byte
	Status          byte
	ShortName       string
	LongName        string
	NumPorts        uint16
	SwIn            [4]byte
	SwOut           [4]byte
	Style           byte
	MAC             [6]byte
	BindIP          [4]byte
}

func putNullTerminatedASCII(buf []byte, s string) {
	n := len(s)
	if n > len(buf)-1 {
		n = len(buf) - 1
	}
	copy(buf, s[:n])
	buf[n] = 0
}

func readNullTerminatedASCII(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// EncodeArtPollReply encodes a fixed 239-byte ArtPollReply packet.
func EncodeArtPollReply(r ArtPollReply) []byte {
	buf := make([]byte, pollReplyLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpCodePollReply)

	copy(buf[pollReplyIPOff:pollReplyIPOff+4], r.IP[:])
	binary.LittleEndian.PutUint16(buf[pollReplyPortOff:pollReplyPortOff+2], r.Port)
	binary.BigEndian.PutUint16(buf[pollReplyFirmOff:pollReplyFirmOff+2], r.FirmwareVersion)
	buf[pollReplyNetOff] = r.NetSwitch
	buf[pollReplySubOff] = r.SubSwitch
	buf[pollReplyStatOff] = r.Status

	putNullTerminatedASCII(buf[pollReplyShortOff:pollReplyShortOff+shortNameLen], truncate(r.ShortName, shortNameLen-1))
	putNullTerminatedASCII(buf[pollReplyLongOff:pollReplyLongOff+longNameLen], truncate(r.LongName, longNameLen-1))

	binary.BigEndian.PutUint16(buf[pollReplyPortsOff:pollReplyPortsOff+2], r.NumPorts)
	copy(buf[pollReplySwInOff:pollReplySwInOff+4], r.SwIn[:])
	copy(buf[pollReplySwOutOff:pollReplySwOutOff+4], r.SwOut[:])
	buf[pollReplyStyleOff] = r.Style
	copy(buf[pollReplyMACOff:pollReplyMACOff+6], r.MAC[:])
	copy(buf[pollReplyBindOff:pollReplyBindOff+4], r.BindIP[:])

	return buf
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// DecodeArtPollReply decodes a fixed 239-byte ArtPollReply packet.
func DecodeArtPollReply(buf []byte) (ArtPollReply, bool) {
	if len(buf) < pollReplyLen || !hasValidHeader(buf) {
		return ArtPollReply{}, false
	}
	if binary.LittleEndian.Uint16(buf[8:10]) != OpCodePollReply {
		return ArtPollReply{}, false
	}

	var r ArtPollReply
	copy(r.IP[:], buf[pollReplyIPOff:pollReplyIPOff+4])
	r.Port = binary.LittleEndian.Uint16(buf[pollReplyPortOff : pollReplyPortOff+2])
	r.FirmwareVersion = binary.BigEndian.Uint16(buf[pollReplyFirmOff : pollReplyFirmOff+2])
	r.NetSwitch = buf[pollReplyNetOff]
	r.SubSwitch = buf[pollReplySubOff]
	r.Status = buf[pollReplyStatOff]
	r.ShortName = readNullTerminatedASCII(buf[pollReplyShortOff : pollReplyShortOff+shortNameLen])
	r.LongName = readNullTerminatedASCII(buf[pollReplyLongOff : pollReplyLongOff+longNameLen])
	r.NumPorts = binary.BigEndian.Uint16(buf[pollReplyPortsOff : pollReplyPortsOff+2])
	copy(r.SwIn[:], buf[pollReplySwInOff:pollReplySwInOff+4])
	copy(r.SwOut[:], buf[pollReplySwOutOff:pollReplySwOutOff+4])
	r.Style = buf[pollReplyStyleOff]
	copy(r.MAC[:], buf[pollReplyMACOff:pollReplyMACOff+6])
	copy(r.BindIP[:], buf[pollReplyBindOff:pollReplyBindOff+4])

	return r, true
}

// IPString renders the 4-byte IP as a dotted-quad string.
func (r ArtPollReply) IPString() string {
	ip := r.IP
	return itoa(ip[0]) + "." + itoa(ip[1]) + "." + itoa(ip[2]) + "." + itoa(ip[3])
}

func itoa(b byte) string {
	if b == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	n := b
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
