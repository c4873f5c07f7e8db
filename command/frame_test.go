// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package command

import "testing"

func TestFrameRoundTrip(t *testing.T) {
	cases := []Command{
		SetMaxPowerCmd{Watts: 3680},
		ShutdownCmd{},
	}
	for _, c := range cases {
		frame, err := EncodeFrame(c)
		if err != nil {
			t.Fatalf("EncodeFrame(%v): %v", c, err)
		}
		got, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("DecodeFrame round-trip: %v", err)
		}
		if got != c {
			t.Errorf("round-trip mismatch: got %#v, want %#v", got, c)
		}
	}
}

func TestDecodeFrameRejectsWrongLength(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x01, 0x02}); err != ErrShortFrame {
		t.Errorf("err = %v, want ErrShortFrame", err)
	}
}

func TestDecodeFrameRejectsCorruptCRC(t *testing.T) {
	frame, err := EncodeFrame(SetMaxPowerCmd{Watts: 3680})
	if err != nil {
		t.Fatal(err)
	}
	frame[7] ^= 0xFF
	if _, err := DecodeFrame(frame); err != ErrCRCMismatch {
		t.Errorf("err = %v, want ErrCRCMismatch", err)
	}
}

func TestDecodeFrameRejectsOutOfRangeWatts(t *testing.T) {
	frame, err := EncodeFrame(SetMaxPowerCmd{Watts: 999999})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFrame(frame); err == nil {
		t.Error("expected validation error for out-of-range watts")
	}
}

func TestDecodeFrameRejectsUnknownTag(t *testing.T) {
	frame, err := EncodeFrame(ShutdownCmd{})
	if err != nil {
		t.Fatal(err)
	}
	frame[0] = 0xFE
	crcVal := crcTable.CRC16(crcTable.UpdateCrc(crcTable.InitCrc(), frame[:6]))
	frame[6] = byte(crcVal >> 8)
	frame[7] = byte(crcVal)
	if _, err := DecodeFrame(frame); err == nil {
		t.Error("expected unknown-tag error")
	}
}
