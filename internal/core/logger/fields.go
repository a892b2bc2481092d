package logger

import "go.uber.org/zap"

type Field = zap.Field

func StringField(key, value string) Field { return zap.String(key, value) }

func Int64Field(key string, value int64) Field { return zap.Int64(key, value) }

func IntField(key string, value int) Field { return zap.Int(key, value) }

func ErrorField(key string, err error) Field { return zap.NamedError(key, err) }

func AnyField(key string, value any) Field { return zap.Any(key, value) }
