package serializer

// Serializer 抽象了网络层“对象 <-> 字节流”的序列化能力。
//
// 文本帧使用 JSON，二进制帧使用 google.protobuf.Struct，两者承载相同的字段。
type Serializer interface {
	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象，v 通常为指针类型。
	Unmarshal(data []byte, v any) error

	// Tag 读取消息中的 type 字段。
	//
	// 无法解析时返回 merr.ErrMalformedMessage，缺少 type 时返回 merr.ErrMissingField。
	Tag(data []byte) (string, error)
}

// TagField 为消息类型字段的名称。
const TagField = "type"
