package serializer

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

type SerializerSuite struct {
	suite.Suite
}

func (s *SerializerSuite) TestJSONTag() {
	var ser JSONSerializer

	tag, err := ser.Tag([]byte(`{"type":"register","user":"alice"}`))
	s.NoError(err)
	s.Equal("register", tag)

	_, err = ser.Tag([]byte(`{"type":`))
	s.ErrorIs(err, merr.ErrMalformedMessage)

	_, err = ser.Tag([]byte(`{"user":"alice"}`))
	s.ErrorIs(err, merr.ErrMissingField)

	_, err = ser.Tag([]byte(`{"type":42}`))
	s.ErrorIs(err, merr.ErrMalformedMessage)

	_, err = ser.Tag([]byte(`[1,2]`))
	s.Error(err)
}

func (s *SerializerSuite) TestJSONUnmarshal() {
	var ser JSONSerializer

	req := &protocol.RegisterRequest{}
	s.NoError(ser.Unmarshal([]byte(`{"type":"register","user":"alice"}`), req))
	s.Equal("alice", req.User)

	err := ser.Unmarshal([]byte(`{"type":"register","user":5}`), &protocol.RegisterRequest{})
	s.ErrorIs(err, merr.ErrMalformedMessage)

	raw, err := ser.Marshal(protocol.NewMatched("bob"))
	s.NoError(err)
	s.JSONEq(`{"type":"matched","partner":"bob"}`, string(raw))
}

func (s *SerializerSuite) TestProtoFrame() {
	var ser ProtoSerializer

	raw, err := ser.Marshal(protocol.NewChat("alice", "hi"))
	s.NoError(err)

	st := &structpb.Struct{}
	s.NoError(proto.Unmarshal(raw, st))
	s.Equal("chat", st.GetFields()["type"].GetStringValue())
	s.Equal("alice", st.GetFields()["user"].GetStringValue())

	tag, err := ser.Tag(raw)
	s.NoError(err)
	s.Equal("chat", tag)

	out := &protocol.Chat{}
	s.NoError(ser.Unmarshal(raw, out))
	s.Equal(protocol.NewChat("alice", "hi"), *out)
}

func (s *SerializerSuite) TestProtoNumbers() {
	var ser ProtoSerializer

	raw, err := ser.Marshal(protocol.NewUserCount(3))
	s.NoError(err)

	out := &protocol.UserCount{}
	s.NoError(ser.Unmarshal(raw, out))
	s.Equal(3, out.Count)
}

func (s *SerializerSuite) TestProtoMalformed() {
	var ser ProtoSerializer

	_, err := ser.Tag([]byte{0xff, 0xff, 0xff})
	s.ErrorIs(err, merr.ErrMalformedMessage)

	st, err := structpb.NewStruct(map[string]any{"user": "alice"})
	s.NoError(err)
	raw, err := proto.Marshal(st)
	s.NoError(err)
	_, err = ser.Tag(raw)
	s.ErrorIs(err, merr.ErrMissingField)
}

func TestSerializer(t *testing.T) {
	suite.Run(t, new(SerializerSuite))
}
