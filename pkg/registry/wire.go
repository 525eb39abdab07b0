package registry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// magicByte starts every schema registry framed message.
const magicByte = 0x00

var ErrNotFramed = errors.New("payload is not schema registry framed")

// Frame prefixes a protobuf payload with the registry wire header: the magic
// byte, the big-endian schema id and the message index path. The path [0]
// (first message in the schema) is written as a single zero byte.
func Frame(schemaID int, indexes []int, payload []byte) []byte {
	out := make([]byte, 5, 6+len(indexes)*2+len(payload))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:5], uint32(schemaID))

	if len(indexes) == 0 || (len(indexes) == 1 && indexes[0] == 0) {
		out = append(out, 0)
	} else {
		out = protowire.AppendVarint(out, protowire.EncodeZigZag(int64(len(indexes))))
		for _, idx := range indexes {
			out = protowire.AppendVarint(out, protowire.EncodeZigZag(int64(idx)))
		}
	}
	return append(out, payload...)
}

// Unframe splits a framed message into schema id, message index path and payload.
func Unframe(b []byte) (schemaID int, indexes []int, payload []byte, err error) {
	if len(b) < 6 || b[0] != magicByte {
		return 0, nil, nil, ErrNotFramed
	}
	schemaID = int(binary.BigEndian.Uint32(b[1:5]))
	b = b[5:]

	count, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, nil, nil, fmt.Errorf("reading message index count: %w", protowire.ParseError(n))
	}
	b = b[n:]

	num := protowire.DecodeZigZag(count)
	if num == 0 {
		return schemaID, []int{0}, b, nil
	}
	if num < 0 || num > int64(len(b)) {
		return 0, nil, nil, fmt.Errorf("invalid message index count %d", num)
	}
	indexes = make([]int, num)
	for i := range indexes {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, nil, nil, fmt.Errorf("reading message index %d: %w", i, protowire.ParseError(n))
		}
		indexes[i] = int(protowire.DecodeZigZag(v))
		b = b[n:]
	}
	return schemaID, indexes, b, nil
}
