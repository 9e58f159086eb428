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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Service related
	ErrServiceNotReady    = newBrokerError("service not ready", 1, true)
	ErrServiceUnavailable = newBrokerError("service unavailable", 2, true)
	ErrServiceInternal    = newBrokerError("service internal error", 5, false)
	ErrPoolExhausted      = newBrokerError("connection pool exhausted", 6, true)

	// Parameter related
	ErrParameterInvalid = newBrokerError("invalid parameter", 1100, false)
	ErrParameterMissing = newBrokerError("missing parameter", 1101, false)

	// Message related, reported to the client as server_error.
	ErrMalformedMessage   = newBrokerError("malformed message", 1500, false, WithErrorType(InputError))
	ErrUnknownMessageType = newBrokerError("unknown message type", 1501, false, WithErrorType(InputError))
	ErrMissingField       = newBrokerError("missing required field", 1502, false, WithErrorType(InputError))
	ErrNotRegistered      = newBrokerError("register first", 1503, false, WithErrorType(InputError))
	ErrAlreadyRegistered  = newBrokerError("already registered", 1504, false, WithErrorType(InputError))
	ErrModeNotSupported   = newBrokerError("message not supported in this mode", 1505, false, WithErrorType(InputError))

	// Connection related
	ErrConnectionNotFound = newBrokerError("connection not found", 1600, false)
	ErrSendQueueFull      = newBrokerError("send queue full", 1601, true)
	ErrSessionClosed      = newBrokerError("session closed", 1602, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to brokerError
	errUnexpected = newBrokerError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*brokerError)

func WithDetail(detail string) errorOption {
	return func(err *brokerError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *brokerError) {
		err.errType = etype
	}
}

type brokerError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newBrokerError(msg string, code int32, retriable bool, options ...errorOption) brokerError {
	err := brokerError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e brokerError) code() int32 {
	return e.errCode
}

func (e brokerError) Error() string {
	return e.msg
}

func (e brokerError) Detail() string {
	return e.detail
}

func (e brokerError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(brokerError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// the cause of multi errors is defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Combine 聚合多个错误，忽略其中的 nil；全部为 nil 时返回 nil。
func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
