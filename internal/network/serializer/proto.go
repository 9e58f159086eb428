package serializer

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lk2023060901/pairchat-go/internal/json"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// ProtoSerializer 将消息编码为 google.protobuf.Struct 的二进制形式。
//
// 传入的对象先按 JSON 字段名展开为 map，再转换为 Struct，
// 因此与 JSONSerializer 共享同一套 json tag。
type ProtoSerializer struct{}

// 编译期断言：确保 ProtoSerializer 实现了 Serializer 接口。
var _ Serializer = (*ProtoSerializer)(nil)

func (ProtoSerializer) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return proto.Marshal(msg)
	}
	fields, err := toMap(v)
	if err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func (ProtoSerializer) Unmarshal(data []byte, v any) error {
	if msg, ok := v.(proto.Message); ok {
		if err := proto.Unmarshal(data, msg); err != nil {
			return merr.WrapErrMalformedMessage(err)
		}
		return nil
	}
	st, err := decodeStruct(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return merr.WrapErrMalformedMessage(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return merr.WrapErrMalformedMessage(err)
	}
	return nil
}

func (ProtoSerializer) Tag(data []byte) (string, error) {
	st, err := decodeStruct(data)
	if err != nil {
		return "", err
	}
	tag, ok := st.GetFields()[TagField]
	if !ok {
		return "", merr.WrapErrMissingField("unknown", TagField)
	}
	if _, isString := tag.GetKind().(*structpb.Value_StringValue); !isString {
		return "", merr.WrapErrMalformedMessage(nil)
	}
	return tag.GetStringValue(), nil
}

func decodeStruct(data []byte) (*structpb.Struct, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, merr.WrapErrMalformedMessage(err)
	}
	return st, nil
}

func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
