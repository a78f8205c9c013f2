package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type shortStringer interface {
	ShortString() string
}

// ZShortStringer returns a field that logs ShortString of the value.
func ZShortStringer(name string, val shortStringer) zap.Field {
	return zap.String(name, val.ShortString())
}

// ZStep returns a field for the step counter.
func ZStep(step int64) zap.Field {
	return zap.Int64("step", step)
}

// ZRank returns a field for a writer or reader rank.
func ZRank(name string, rank int) zap.Field {
	return zap.Int(name, rank)
}

// ZVar returns a field for a variable name.
func ZVar(name string) zap.Field {
	return zap.String("var", name)
}

// ZObject is a shortcut for zap.Object.
func ZObject(name string, obj zapcore.ObjectMarshaler) zap.Field {
	return zap.Object(name, obj)
}
