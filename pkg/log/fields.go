package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameConnID    = "connID"
	FieldNameMsgType   = "msgType"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldConnID 返回一个包含连接 ID 的 zap 字段。
func FieldConnID(id string) zap.Field {
	return zap.String(FieldNameConnID, id)
}

// FieldMsgType 返回一个包含消息类型的 zap 字段。
func FieldMsgType(t string) zap.Field {
	return zap.String(FieldNameMsgType, t)
}
