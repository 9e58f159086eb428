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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case brokerError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	var berr brokerError
	if errors.As(err, &berr) {
		return berr.retriable
	}
	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	var berr brokerError
	if errors.As(err, &berr) {
		return berr.errType
	}
	return SystemError
}

// IsInputError 判断错误是否由客户端输入引起（应以 server_error 回复而非关闭连接）。
func IsInputError(err error) bool {
	return GetErrorType(err) == InputError
}

// ClientMessage 返回放入 server_error 回包中的错误描述。
//
// 说明：
//   - 输入类错误返回带字段的完整描述，例如 "missing required field[field=user]"；
//   - 其它错误统一返回 "internal error"，不向客户端暴露内部细节。
func ClientMessage(err error) string {
	if err == nil {
		return ""
	}
	var berr brokerError
	if errors.As(err, &berr) && berr.errType == InputError {
		return berr.msg
	}
	return "internal error"
}

func WrapErrServiceNotReady(state string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceNotReady, state)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrServiceInternal(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceInternal, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPoolExhausted(capacity int) error {
	return wrapFields(ErrPoolExhausted, value("capacity", capacity))
}

func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing(param string, msg ...string) error {
	err := wrapFields(ErrParameterMissing, value("param", param))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrMalformedMessage 包装一条无法解析的消息错误，cause 为底层解析错误。
func WrapErrMalformedMessage(cause error) error {
	if cause == nil {
		return ErrMalformedMessage
	}
	return wrapFieldsWithDesc(ErrMalformedMessage, cause.Error())
}

func WrapErrUnknownMessageType(msgType string) error {
	return wrapFields(ErrUnknownMessageType, value("type", msgType))
}

func WrapErrMissingField(msgType, field string) error {
	return wrapFields(ErrMissingField, value("type", msgType), value("field", field))
}

func WrapErrModeNotSupported(msgType, mode string) error {
	return wrapFields(ErrModeNotSupported, value("type", msgType), value("mode", mode))
}

func WrapErrConnectionNotFound(id string, msg ...string) error {
	err := wrapFields(ErrConnectionNotFound, value("connID", id))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSendQueueFull(id string, capacity int) error {
	return wrapFields(ErrSendQueueFull, value("connID", id), value("capacity", capacity))
}

func WrapErrSessionClosed(id string) error {
	return wrapFields(ErrSessionClosed, value("connID", id))
}

func wrapFields(err brokerError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err brokerError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
