// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package command

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/snksoft/crc"
)

// Frame layout: 1 byte tag, 4 byte big-endian payload, 1 byte reserved
// (zero), 2 byte CRC-16/CCITT (XMODEM) over the preceding 6 bytes.
const (
	frameSize = 8

	tagSetMaxPower byte = 0x01
	tagShutdown    byte = 0x02
)

var crcTable = crc.NewTable(crc.XMODEM)

// ErrShortFrame is returned when the input is not exactly frameSize bytes.
var ErrShortFrame = errors.New("command: frame must be 8 bytes")

// ErrCRCMismatch is returned when the trailing CRC doesn't match the
// frame's body.
var ErrCRCMismatch = errors.New("command: CRC mismatch")

// ErrUnknownTag is returned for a tag byte that names no Command.
var ErrUnknownTag = errors.New("command: unknown tag")

// DecodeFrame validates and decodes an 8-byte command frame from an
// external boundary. A malformed frame is rejected here and never
// constructs a Command.
func DecodeFrame(frame []byte) (Command, error) {
	if len(frame) != frameSize {
		return nil, ErrShortFrame
	}

	body := frame[:6]
	wantCRC := binary.BigEndian.Uint16(frame[6:8])
	gotCRC := crcTable.CRC16(crcTable.UpdateCrc(crcTable.InitCrc(), body))
	if gotCRC != wantCRC {
		return nil, ErrCRCMismatch
	}

	tag := frame[0]
	payload := binary.BigEndian.Uint32(frame[1:5])

	switch tag {
	case tagSetMaxPower:
		return SetMaxPower(payload)
	case tagShutdown:
		return Shutdown(), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
}

// EncodeFrame is the inverse of DecodeFrame, provided so callers (and
// tests) can round-trip a Command into the wire format without hand
// computing the CRC.
func EncodeFrame(c Command) ([]byte, error) {
	frame := make([]byte, frameSize)
	switch v := c.(type) {
	case SetMaxPowerCmd:
		frame[0] = tagSetMaxPower
		binary.BigEndian.PutUint32(frame[1:5], v.Watts)
	case ShutdownCmd:
		frame[0] = tagShutdown
	default:
		return nil, fmt.Errorf("command: unencodable command %T", c)
	}
	crcVal := crcTable.CRC16(crcTable.UpdateCrc(crcTable.InitCrc(), frame[:6]))
	binary.BigEndian.PutUint16(frame[6:8], crcVal)
	return frame, nil
}
