package serializer

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/pairchat-go/internal/json"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return merr.WrapErrMalformedMessage(err)
	}
	return nil
}

// Tag 只定位 type 字段，不解码整条消息。
func (JSONSerializer) Tag(data []byte) (string, error) {
	if !json.Valid(data) {
		return "", merr.ErrMalformedMessage
	}
	tag := jsoniter.Get(data, TagField)
	switch tag.ValueType() {
	case jsoniter.StringValue:
		return tag.ToString(), nil
	case jsoniter.InvalidValue, jsoniter.NilValue:
		return "", merr.WrapErrMissingField("unknown", TagField)
	default:
		return "", merr.WrapErrMalformedMessage(tag.LastError())
	}
}
