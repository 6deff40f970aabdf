package nibegw

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	out, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex string %q: %v", s, err)
	}
	return out
}

func TestParseResponseModbusReadResp(t *testing.T) {
	buf := hexBytes(t, "5c00206a06a0a9f5120000a2")

	frame, n, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d bytes, want %d", n, len(buf))
	}
	if frame.Address != 0x0020 {
		t.Errorf("address = 0x%04x, want 0x0020", frame.Address)
	}
	if frame.Command != ModbusReadResp {
		t.Errorf("command = %v, want ModbusReadResp", frame.Command)
	}
	wantPayload := hexBytes(t, "a0a9f5120000")
	if !bytes.Equal(frame.Payload, wantPayload) {
		t.Errorf("payload = % x, want % x", frame.Payload, wantPayload)
	}
}

func TestParseRequestModbusReadReq(t *testing.T) {
	buf := hexBytes(t, "c06902a0a9a2")

	req, n, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d bytes, want %d", n, len(buf))
	}
	if req.Command != ModbusReadReq {
		t.Errorf("command = %v, want ModbusReadReq", req.Command)
	}
	wantPayload := hexBytes(t, "a0a9")
	if !bytes.Equal(req.Payload, wantPayload) {
		t.Errorf("payload = % x, want % x", req.Payload, wantPayload)
	}
}

func TestParseResponseModbusWriteResp(t *testing.T) {
	accepted := hexBytes(t, "5c00206c01014c")
	frame, _, err := ParseResponse(accepted)
	if err != nil {
		t.Fatalf("ParseResponse(accepted): %v", err)
	}
	ok, err := DecodeModbusWriteResp(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeModbusWriteResp(accepted): %v", err)
	}
	if !ok {
		t.Error("expected accepted write response")
	}

	denied := hexBytes(t, "5c00206c01004d")
	frame, _, err = ParseResponse(denied)
	if err != nil {
		t.Fatalf("ParseResponse(denied): %v", err)
	}
	ok, err = DecodeModbusWriteResp(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeModbusWriteResp(denied): %v", err)
	}
	if ok {
		t.Error("expected denied write response")
	}
}

func TestParseResponseProductInfo(t *testing.T) {
	buf := hexBytes(t, "5c00206d0d0124e346313235352d313220529f")
	frame, _, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if frame.Command != ProductInfoMsg {
		t.Fatalf("command = %v, want ProductInfoMsg", frame.Command)
	}
	info, err := DecodeProductInfoMsg(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeProductInfoMsg: %v", err)
	}
	if info.Version != 9443 {
		t.Errorf("version = %d, want 9443", info.Version)
	}
	if info.Model != "F1255-12 R" {
		t.Errorf("model = %q, want %q", info.Model, "F1255-12 R")
	}
}

func TestBuildRequestRoundTrip(t *testing.T) {
	built := BuildRequest(ModbusReadReq, []byte{0xa0, 0xa9})
	req, n, err := ParseRequest(built)
	if err != nil {
		t.Fatalf("ParseRequest(BuildRequest(...)): %v", err)
	}
	if n != len(built) {
		t.Fatalf("consumed %d bytes, want %d", n, len(built))
	}
	if req.Command != ModbusReadReq || !bytes.Equal(req.Payload, []byte{0xa0, 0xa9}) {
		t.Errorf("round trip mismatch: %+v", req)
	}
	if want := hexBytes(t, "c06902a0a9a2"); !bytes.Equal(built, want) {
		t.Errorf("built = % x, want % x", built, want)
	}
}

func TestBuildResponseRoundTripWithEscaping(t *testing.T) {
	payload := []byte{0x01, 0x5c, 0x02}
	built := BuildResponse(0x0020, ModbusReadResp, payload)

	frame, n, err := ParseResponse(built)
	if err != nil {
		t.Fatalf("ParseResponse(BuildResponse(...)): %v", err)
	}
	if n != len(built) {
		t.Fatalf("consumed %d bytes, want %d", n, len(built))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("payload = % x, want % x", frame.Payload, payload)
	}
	if !bytes.Contains(built, []byte{0x5c, 0x5c}) {
		t.Errorf("expected escaped 0x5c to appear doubled in %x", built)
	}
}

func TestParseResponseChecksumMismatch(t *testing.T) {
	buf := hexBytes(t, "5c00206a06a0a9f5120000ff")
	if _, _, err := ParseResponse(buf); err == nil {
		t.Fatal("expected checksum error, got nil")
	} else if _, ok := err.(*ErrChecksum); !ok {
		t.Errorf("got error %T, want *ErrChecksum", err)
	}
}

func TestParseResponseShortFrame(t *testing.T) {
	buf := hexBytes(t, "5c0020")
	if _, _, err := ParseResponse(buf); err == nil {
		t.Fatal("expected short frame error, got nil")
	} else if _, ok := err.(*ErrShortFrame); !ok {
		t.Errorf("got error %T, want *ErrShortFrame", err)
	}
}

func TestIsControlByte(t *testing.T) {
	if !IsControlByte(StartACK) || !IsControlByte(StartNAK) {
		t.Error("ACK/NAK should be recognized as control bytes")
	}
	if IsControlByte(StartResponse) {
		t.Error("response start code should not be a control byte")
	}
}
