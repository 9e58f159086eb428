package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

func TestParseType(t *testing.T) {
	for _, tag := range []string{"register", "REGISTER", " Register "} {
		typ, err := ParseType(tag)
		require.NoError(t, err)
		assert.Equal(t, TypeRegister, typ)
	}

	typ, err := ParseType("SEND_MESSAGE")
	require.NoError(t, err)
	assert.Equal(t, TypeSendMessage, typ)

	_, err = ParseType("dance")
	assert.ErrorIs(t, err, merr.ErrUnknownMessageType)

	// 服务器侧类型不是合法的客户端消息。
	_, err = ParseType("waiting")
	assert.ErrorIs(t, err, merr.ErrUnknownMessageType)
}

func TestNewRequestCoversClientTypes(t *testing.T) {
	for _, typ := range ClientTypes {
		req := NewRequest(typ)
		require.NotNil(t, req, typ)
		assert.Equal(t, typ, req.MsgType())
	}
	assert.Nil(t, NewRequest(TypeWaiting))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		req   Inbound
		field string
	}{
		{&RegisterRequest{}, "user"},
		{&ChatRequest{}, "message"},
		{&ConnectRequest{}, "userId"},
		{&SendMessageRequest{}, "message"},
	}
	for _, c := range cases {
		err := c.req.Validate()
		assert.ErrorIs(t, err, merr.ErrMissingField)
		assert.Contains(t, merr.ClientMessage(err), "field="+c.field)
	}

	assert.NoError(t, (&RegisterRequest{User: "alice"}).Validate())
	assert.NoError(t, (&ChatRequest{Message: "hi"}).Validate())
	assert.NoError(t, (&MatchRequest{}).Validate())
	assert.NoError(t, (&SendMessageRequest{Message: map[string]any{}}).Validate())
}

func TestOutboundTypes(t *testing.T) {
	assert.Equal(t, TypeWaiting, NewWaiting().Type)
	assert.Equal(t, "bob", NewMatched("bob").Partner)
	assert.Equal(t, TypeChat, NewChat("alice", "hi").MsgType())
	assert.Equal(t, 3, NewUserCount(3).Count)
	assert.Equal(t, TypeServerError, NewServerError("x").MsgType())
	assert.Equal(t, TypeChatMessage, NewChatMessage(nil).Type)
}

func TestTagged(t *testing.T) {
	fields, err := Tagged(&RegisterRequest{User: "alice"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "register", "user": "alice"}, fields)

	fields, err = Tagged(&MatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "match"}, fields)
}
