package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// leveledCore raises the minimum level of a wrapped core.
type leveledCore struct {
	zapcore.Core

	// minimum is the lowest level the core lets through.
	minimum zapcore.Level
}

// Enabled reports whether l passes the core's minimum level.
func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.minimum.Enabled(l)
}

// Check adds the core to ce when the entry level is enabled.
//
//nolint:gocritic // zapcore.Core requires ent by value.
func (c *leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the minimum level on the derived core.
//
//nolint:ireturn // zapcore.Core is the contract.
func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{
		Core:    c.Core.With(fields),
		minimum: c.minimum,
	}
}

// WithLevel builds a zap option that drops messages below lvl. The terminal uses
// it to keep detector chatter out of the console while the rest stays at debug.
//
//nolint:ireturn // zap.Option is the contract.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{Core: core, minimum: lvl}
	})
}
