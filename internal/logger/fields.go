package logger

import (
	"time"

	"github.com/rs/zerolog"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt64
	kindUint64
	kindFloat64
	kindBool
	kindTime
	kindDuration
	kindError
	kindAny
)

// Field is a typed key/value pair attached to a log entry.
type Field struct {
	key  string
	kind fieldKind
	str  string
	i64  int64
	u64  uint64
	f64  float64
	b    bool
	t    time.Time
	d    time.Duration
	err  error
	any  any
}

func String(key, value string) Field         { return Field{key: key, kind: kindString, str: value} }
func Int(key string, value int) Field         { return Field{key: key, kind: kindInt64, i64: int64(value)} }
func Int64(key string, value int64) Field     { return Field{key: key, kind: kindInt64, i64: value} }
func Uint64(key string, value uint64) Field   { return Field{key: key, kind: kindUint64, u64: value} }
func Float64(key string, value float64) Field { return Field{key: key, kind: kindFloat64, f64: value} }
func Bool(key string, value bool) Field       { return Field{key: key, kind: kindBool, b: value} }
func Time(key string, value time.Time) Field  { return Field{key: key, kind: kindTime, t: value} }
func Any(key string, value any) Field         { return Field{key: key, kind: kindAny, any: value} }

func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: kindDuration, d: value}
}

// Error attaches err under the conventional "error" key. A nil error is ignored.
func Error(err error) Field { return Field{key: "error", kind: kindError, err: err} }

func (f Field) applyEvent(ev *zerolog.Event) *zerolog.Event {
	switch f.kind {
	case kindString:
		return ev.Str(f.key, f.str)
	case kindInt64:
		return ev.Int64(f.key, f.i64)
	case kindUint64:
		return ev.Uint64(f.key, f.u64)
	case kindFloat64:
		return ev.Float64(f.key, f.f64)
	case kindBool:
		return ev.Bool(f.key, f.b)
	case kindTime:
		return ev.Time(f.key, f.t)
	case kindDuration:
		return ev.Dur(f.key, f.d)
	case kindError:
		if f.err == nil {
			return ev
		}
		return ev.AnErr(f.key, f.err)
	default:
		return ev.Interface(f.key, f.any)
	}
}

func (f Field) applyContext(ctx zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return ctx.Str(f.key, f.str)
	case kindInt64:
		return ctx.Int64(f.key, f.i64)
	case kindUint64:
		return ctx.Uint64(f.key, f.u64)
	case kindFloat64:
		return ctx.Float64(f.key, f.f64)
	case kindBool:
		return ctx.Bool(f.key, f.b)
	case kindTime:
		return ctx.Time(f.key, f.t)
	case kindDuration:
		return ctx.Dur(f.key, f.d)
	case kindError:
		if f.err == nil {
			return ctx
		}
		return ctx.AnErr(f.key, f.err)
	default:
		return ctx.Interface(f.key, f.any)
	}
}
