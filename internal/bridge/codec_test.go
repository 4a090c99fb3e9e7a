package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codecs() []Codec { return []Codec{JSONCodec{}, ProtoCodec{}} }

func TestCodecMessages(t *testing.T) {
	data := Primitive(map[string]any{"n": float64(1), "tags": []any{"a", "b"}})
	null := Primitive(nil)
	messages := []Message{
		{ID: "1", Op: OpGet, Path: Path{Key("host"), Key("a")}},
		{ID: "2", Op: OpSet, Path: Path{Key("host"), Index(3)}, Value: &data},
		{ID: "3", Op: OpSet, Path: Path{Key("host"), Key("a")}, Value: &null},
		{ID: "4", Op: OpCall, Path: Path{Key("host"), Key("add")}, Args: []Value{
			Primitive(float64(2)),
			Undefined(),
			Reference(Path{Key("host"), Key("b")}, nil, false),
		}},
	}

	for _, c := range codecs() {
		for _, m := range messages {
			t.Run(c.Name()+"/"+m.ID, func(t *testing.T) {
				raw, err := c.EncodeMessage(m)
				require.NoError(t, err)
				got, err := c.DecodeMessage(raw)
				require.NoError(t, err)

				assert.Equal(t, m.ID, got.ID)
				assert.Equal(t, m.Op, got.Op)
				assert.Equal(t, m.Path.String(), got.Path.String())
				if m.Value != nil {
					require.NotNil(t, got.Value)
					assert.Equal(t, m.Value.Defined, got.Value.Defined)
					assert.Equal(t, m.Value.Data, got.Value.Data)
				}
				require.Len(t, got.Args, len(m.Args))
				for i, a := range m.Args {
					assert.Equal(t, a.Type, got.Args[i].Type)
					assert.Equal(t, a.Defined, got.Args[i].Defined)
					assert.Equal(t, a.Path.String(), got.Args[i].Path.String())
				}
			})
		}
	}
}

func TestCodecResponses(t *testing.T) {
	ref := Reference(Path{Key("_retobj1")}, []string{"x", "y"}, true)
	undef := Undefined()
	responses := []Response{
		{ID: "a", Value: &ref},
		{ID: "b", Value: &undef},
		{ID: "c", Error: "path not exposed: host.c"},
	}

	for _, c := range codecs() {
		for _, r := range responses {
			t.Run(c.Name()+"/"+r.ID, func(t *testing.T) {
				raw, err := c.EncodeResponse(r)
				require.NoError(t, err)
				got, err := c.DecodeResponse(raw)
				require.NoError(t, err)

				assert.Equal(t, r.ID, got.ID)
				assert.Equal(t, r.Error, got.Error)
				if r.Value == nil {
					assert.Nil(t, got.Value)
					return
				}
				require.NotNil(t, got.Value)
				assert.Equal(t, r.Value.Type, got.Value.Type)
				assert.Equal(t, r.Value.Defined, got.Value.Defined)
				assert.Equal(t, r.Value.Keys, got.Value.Keys)
				assert.Equal(t, r.Value.Path.String(), got.Value.Path.String())
			})
		}
	}
}

func TestCodecRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{"},
		{name: "unknown op", raw: `{"op":"delete","path":["a"]}`},
		{name: "set without value", raw: `{"op":"set","path":["a"]}`},
		{name: "bad value type", raw: `{"op":"set","path":["a"],"value":{"type":"symbol"}}`},
		{name: "reference without path", raw: `{"op":"call","path":["a"],"args":[{"type":"object"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSONCodec{}.DecodeMessage([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCodecFor(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "proto": "proto", "protobuf": "proto"} {
		c, err := CodecFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, c.Name())
	}
	_, err := CodecFor("xml")
	assert.Error(t, err)
}
