package artnet

import (
	"bytes"
	"testing"
)

func TestEncodeArtDmx_OddLengthPadded(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30}
	got := EncodeArtDmx(7, 0, 0x0105, data)

	want := []byte{
		'A', 'r', 't', '-', 'N', 'e', 't', 0x00,
		0x00, 0x50, // OpCode LE
		0x00, 0x0E, // ProtVer BE
		7,    // seq
		0,    // physical
		0x05, // SubUni
		0x01, // Net
		0x00, 0x04, // length BE
		0x10, 0x20, 0x30, 0x00,
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeArtDmx mismatch:\n got  %x\n want %x", got, want)
	}
}

func TestArtDmxRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		seq      byte
		physical byte
		universe uint16
		data     []byte
	}{
		{"even length", 1, 0, 0, make([]byte, 512)},
		{"odd length padded", 42, 3, 0x0105, []byte{1, 2, 3}},
		{"min length", 255, 0, 0x7FFF, []byte{9, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeArtDmx(tt.seq, tt.physical, tt.universe, tt.data)
			decoded, ok := DecodeArtDmx(encoded)
			if !ok {
				t.Fatalf("DecodeArtDmx failed to decode packet it just encoded")
			}

			wantData := tt.data
			if len(wantData)%2 != 0 {
				padded := make([]byte, len(wantData)+1)
				copy(padded, wantData)
				wantData = padded
			}

			if decoded.Sequence != tt.seq || decoded.Physical != tt.physical || decoded.Universe != tt.universe {
				t.Fatalf("decoded fields mismatch: %+v", decoded)
			}
			if !bytes.Equal(decoded.Data, wantData) {
				t.Fatalf("decoded data mismatch: got %x want %x", decoded.Data, wantData)
			}
		})
	}
}

func TestDecodeArtDmx_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"too short", []byte{1, 2, 3}},
		{"bad header", append([]byte("Not-ArtX"), make([]byte, 10)...)},
		{"wrong opcode", EncodeArtPoll(0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := DecodeArtDmx(tt.buf); ok {
				t.Fatalf("expected decode failure for %s", tt.name)
			}
		})
	}
}

func TestEncodeArtDmx_PanicsOnInvalidLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero-length data")
		}
	}()
	EncodeArtDmx(1, 0, 0, nil)
}

func TestArtPollReplyRoundTrip_IPAndPort(t *testing.T) {
	r := ArtPollReply{
		IP:   [4]byte{192, 168, 1, 42},
		Port: 6454,
	}
	encoded := EncodeArtPollReply(r)

	if encoded[14] != 0x36 || encoded[15] != 0x19 {
		t.Fatalf("port bytes mismatch: got %x %x", encoded[14], encoded[15])
	}

	decoded, ok := DecodeArtPollReply(encoded)
	if !ok {
		t.Fatalf("decode failed")
	}
	if decoded.IPString() != "192.168.1.42" {
		t.Fatalf("IPString() = %q, want 192.168.1.42", decoded.IPString())
	}
	if decoded.Port != 6454 {
		t.Fatalf("Port = %d, want 6454", decoded.Port)
	}
}

func TestArtPollReplyRoundTrip_Names(t *testing.T) {
	r := ArtPollReply{
		ShortName: "node-01",
		LongName:  "ChromaDMX Edge Node",
		NumPorts:  2,
		Style:     0,
		MAC:       [6]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01},
	}
	encoded := EncodeArtPollReply(r)
	if len(encoded) != pollReplyLen {
		t.Fatalf("encoded length = %d, want %d", len(encoded), pollReplyLen)
	}

	decoded, ok := DecodeArtPollReply(encoded)
	if !ok {
		t.Fatalf("decode failed")
	}
	if decoded.ShortName != r.ShortName || decoded.LongName != r.LongName {
		t.Fatalf("names mismatch: got %+v", decoded)
	}
	if decoded.NumPorts != r.NumPorts || decoded.MAC != r.MAC {
		t.Fatalf("fields mismatch: got %+v", decoded)
	}
}

func TestArtPollRoundTrip(t *testing.T) {
	encoded := EncodeArtPoll(TalkToMeSendDiagnostics, 0x10)
	decoded, ok := DecodeArtPoll(encoded)
	if !ok {
		t.Fatalf("decode failed")
	}
	if decoded.TalkToMe != TalkToMeSendDiagnostics || decoded.DiagPriority != 0x10 {
		t.Fatalf("fields mismatch: got %+v", decoded)
	}
}
