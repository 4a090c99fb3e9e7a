package bridge

import (
	"fmt"

	"github.com/bytedance/sonic"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec turns messages into bytes and back. Field names and tags are fixed by
// the wire schema; codecs only choose the byte encoding.
type Codec interface {
	Name() string
	// Binary reports whether frames should be sent as binary websocket
	// messages.
	Binary() bool
	EncodeMessage(Message) ([]byte, error)
	DecodeMessage([]byte) (Message, error)
	EncodeResponse(Response) ([]byte, error)
	DecodeResponse([]byte) (Response, error)
}

// CodecFor returns the codec registered under name ("json" or "proto").
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown wire codec %q", name)
}

// JSONCodec encodes messages as JSON text.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) EncodeMessage(m Message) ([]byte, error) {
	return sonic.Marshal(m.toMap())
}

func (JSONCodec) DecodeMessage(data []byte) (Message, error) {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return messageFrom(raw)
}

func (JSONCodec) EncodeResponse(r Response) ([]byte, error) {
	return sonic.Marshal(r.toMap())
}

func (JSONCodec) DecodeResponse(data []byte) (Response, error) {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return responseFrom(raw)
}

// ProtoCodec encodes messages as a protobuf google.protobuf.Struct, giving a
// compact binary frame with the same logical schema as JSONCodec.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }
func (ProtoCodec) Binary() bool { return true }

func (ProtoCodec) EncodeMessage(m Message) ([]byte, error) {
	return encodeStruct(m.toMap())
}

func (ProtoCodec) DecodeMessage(data []byte) (Message, error) {
	raw, err := decodeStruct(data)
	if err != nil {
		return Message{}, err
	}
	return messageFrom(raw)
}

func (ProtoCodec) EncodeResponse(r Response) ([]byte, error) {
	return encodeStruct(r.toMap())
}

func (ProtoCodec) DecodeResponse(data []byte) (Response, error) {
	raw, err := decodeStruct(data)
	if err != nil {
		return Response{}, err
	}
	return responseFrom(raw)
}

func encodeStruct(m map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return proto.Marshal(s)
}

func decodeStruct(data []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s.AsMap(), nil
}
