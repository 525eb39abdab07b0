package hackernews

import (
	"fmt"

	"github.com/edgeflare/hnstream/pkg/columnar"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Format selects the payload representation.
type Format string

const (
	// FormatProtobuf is the binary field-tag encoding of Row.
	FormatProtobuf Format = "protobuf"
	// FormatJSON renders Row as protobuf JSON text.
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name selects FormatProtobuf.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatProtobuf:
		return FormatProtobuf, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown message format %q", s)
	}
}

// Encoder turns Rows into message payloads. The zero value encodes protobuf.
type Encoder struct {
	Format Format
}

// Encode serializes a single row.
func (e Encoder) Encode(r Row) ([]byte, error) {
	d, err := descriptor()
	if err != nil {
		return nil, err
	}

	msg := d.msgType.New()
	msg.Set(d.id, protoreflect.ValueOfUint32(r.ID))
	msg.Set(d.timestamp, protoreflect.ValueOfUint64(r.Timestamp))
	msg.Set(d.rowType, protoreflect.ValueOfEnum(protoreflect.EnumNumber(r.Type)))
	msg.Set(d.title, protoreflect.ValueOfString(r.Title))
	msg.Set(d.score, protoreflect.ValueOfUint32(r.Score))

	switch e.Format {
	case "", FormatProtobuf:
		return proto.MarshalOptions{Deterministic: true}.Marshal(msg.Interface())
	case FormatJSON:
		return protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true}.Marshal(msg.Interface())
	default:
		return nil, fmt.Errorf("unknown message format %q", e.Format)
	}
}

// EncodeRows serializes rows. Output i is always the encoding of rows[i].
func (e Encoder) EncodeRows(rows []Row) ([][]byte, error) {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		b, err := e.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("encoding row %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// EncodeTable converts and serializes every row of t in order.
func (e Encoder) EncodeTable(t *columnar.Table) ([][]byte, error) {
	rows, err := Rows(t)
	if err != nil {
		return nil, err
	}
	return e.EncodeRows(rows)
}

// Decode parses a protobuf payload produced by Encode.
func Decode(b []byte) (Row, error) {
	d, err := descriptor()
	if err != nil {
		return Row{}, err
	}
	msg := d.msgType.New()
	if err := proto.Unmarshal(b, msg.Interface()); err != nil {
		return Row{}, fmt.Errorf("failed to unmarshal row: %w", err)
	}
	return d.row(msg), nil
}

// DecodeJSON parses a payload produced with FormatJSON.
func DecodeJSON(b []byte) (Row, error) {
	d, err := descriptor()
	if err != nil {
		return Row{}, err
	}
	msg := d.msgType.New()
	if err := protojson.Unmarshal(b, msg.Interface()); err != nil {
		return Row{}, fmt.Errorf("failed to unmarshal row json: %w", err)
	}
	return d.row(msg), nil
}

func (d *rowDescriptor) row(msg protoreflect.Message) Row {
	return Row{
		ID:        uint32(msg.Get(d.id).Uint()),
		Timestamp: msg.Get(d.timestamp).Uint(),
		Type:      RowType(msg.Get(d.rowType).Enum()),
		Title:     msg.Get(d.title).String(),
		Score:     uint32(msg.Get(d.score).Uint()),
	}
}
