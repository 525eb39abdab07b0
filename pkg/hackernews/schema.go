package hackernews

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	schemaFile  = "hackernews.proto"
	messageName = "hackernews.Row"
)

//go:embed hackernews.proto
var schemaText string

// Schema returns the protobuf definition of Row, as registered with a schema registry.
func Schema() string {
	return schemaText
}

// rowDescriptor holds the resolved Row message and its field descriptors.
type rowDescriptor struct {
	msgType   protoreflect.MessageType
	id        protoreflect.FieldDescriptor
	timestamp protoreflect.FieldDescriptor
	rowType   protoreflect.FieldDescriptor
	title     protoreflect.FieldDescriptor
	score     protoreflect.FieldDescriptor
}

var descriptor = sync.OnceValues(func() (*rowDescriptor, error) {
	return parseSchema(schemaText)
})

func parseSchema(text string) (*rowDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			schemaFile: text,
		}),
	}
	fds, err := parser.ParseFiles(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", schemaFile, err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("no file descriptors in %s", schemaFile)
	}

	fd, err := protodesc.NewFile(fds[0].AsFileDescriptorProto(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file descriptor: %w", err)
	}

	md := fd.Messages().ByName("Row")
	if md == nil {
		return nil, fmt.Errorf("message %s not found", messageName)
	}

	d := &rowDescriptor{msgType: dynamicpb.NewMessageType(md)}
	fields := map[protoreflect.FieldNumber]*protoreflect.FieldDescriptor{
		1: &d.id,
		2: &d.timestamp,
		3: &d.rowType,
		4: &d.title,
		5: &d.score,
	}
	for num, dst := range fields {
		f := md.Fields().ByNumber(num)
		if f == nil {
			return nil, fmt.Errorf("message %s has no field %d", messageName, num)
		}
		*dst = f
	}
	return d, nil
}
