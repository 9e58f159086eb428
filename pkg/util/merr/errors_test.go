// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrConnectionNotFound("abc")
	wrapped := errors.Wrap(err, "failed to relay chat")
	s.ErrorIs(wrapped, ErrConnectionNotFound)
	s.Equal(Code(ErrConnectionNotFound), Code(wrapped))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errors.New("boom")))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newBrokerError("new error", ErrConnectionNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrConnectionNotFound))
}

func (s *ErrSuite) TestWrap() {
	s.ErrorIs(WrapErrServiceNotReady("starting"), ErrServiceNotReady)
	s.ErrorIs(WrapErrServiceInternal("never throw out"), ErrServiceInternal)
	s.ErrorIs(WrapErrPoolExhausted(16), ErrPoolExhausted)
	s.ErrorIs(WrapErrParameterInvalid("match", "foo", "bad mode"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("mode %s", "foo"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("addr"), ErrParameterMissing)
	s.ErrorIs(WrapErrMalformedMessage(errors.New("unexpected EOF")), ErrMalformedMessage)
	s.ErrorIs(WrapErrMalformedMessage(nil), ErrMalformedMessage)
	s.ErrorIs(WrapErrUnknownMessageType("dance"), ErrUnknownMessageType)
	s.ErrorIs(WrapErrMissingField("register", "user"), ErrMissingField)
	s.ErrorIs(WrapErrModeNotSupported("match", "broadcast"), ErrModeNotSupported)
	s.ErrorIs(WrapErrSendQueueFull("abc", 8), ErrSendQueueFull)
	s.ErrorIs(WrapErrSessionClosed("abc"), ErrSessionClosed)
}

func (s *ErrSuite) TestErrorType() {
	s.True(IsInputError(WrapErrMissingField("chat", "message")))
	s.True(IsInputError(errors.Wrap(ErrNotRegistered, "match")))
	s.False(IsInputError(WrapErrSendQueueFull("abc", 8)))
	s.Equal(SystemError, GetErrorType(errors.New("plain")))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestClientMessage() {
	s.Equal("", ClientMessage(nil))
	s.Equal("register first", ClientMessage(ErrNotRegistered))
	s.Equal("missing required field[type=register][field=user]", ClientMessage(WrapErrMissingField("register", "user")))
	s.Equal("internal error", ClientMessage(WrapErrSendQueueFull("abc", 8)))
	s.Equal("internal error", ClientMessage(errors.New("boom")))
}

func (s *ErrSuite) TestRetryable() {
	s.True(IsRetryableErr(WrapErrSendQueueFull("abc", 8)))
	s.False(IsRetryableErr(ErrSessionClosed))
	s.False(IsRetryableErr(errors.New("plain")))
	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "read")))
}

func (s *ErrSuite) TestCombine() {
	s.Nil(Combine(nil, nil))

	errFirst := WrapErrSendQueueFull("a", 1)
	errSecond := WrapErrSessionClosed("b")
	errThird := errors.New("third")
	err := Combine(nil, errFirst, errSecond, nil, errThird)
	s.ErrorIs(err, ErrSendQueueFull)
	s.ErrorIs(err, ErrSessionClosed)
	s.ErrorIs(err, errThird)
	s.Contains(err.Error(), "send queue full")
	s.Contains(err.Error(), "third")
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
