package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reglet-dev/hostcall/internal/callctx"
	"github.com/reglet-dev/hostcall/wireformat"
)

// LogMessageWire is the JSON wire format for a log message from guest to host.
type LogMessageWire struct {
	Timestamp time.Time                    `json:"timestamp"`
	Attrs     []LogAttrWire                `json:"attrs,omitempty"`
	Level     string                       `json:"level"`
	Message   string                       `json:"message"`
	Context   wireformat.ContextWireFormat `json:"context"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}

// EncodeRecord serializes record for the host's log_message function.
func EncodeRecord(ctx context.Context, record slog.Record) ([]byte, error) {
	msg := LogMessageWire{
		Context:   callctx.ContextToWire(ctx),
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(attr))
		return true
	})
	return json.Marshal(msg)
}

// Record rebuilds the slog.Record a guest logged. Attribute values are
// restored to their original kind where the wire type allows it.
func (w LogMessageWire) Record() slog.Record {
	var level slog.Level
	if err := level.UnmarshalText([]byte(w.Level)); err != nil {
		level = slog.LevelInfo
	}

	ts := w.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	r := slog.NewRecord(ts, level, w.Message, 0)
	for _, a := range w.Attrs {
		r.AddAttrs(a.Attr())
	}
	return r
}

// Attr converts the wire attribute back to a slog.Attr.
func (a LogAttrWire) Attr() slog.Attr {
	switch a.Type {
	case "int64":
		if n, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
			return slog.Int64(a.Key, n)
		}
	case "uint64":
		if n, err := strconv.ParseUint(a.Value, 10, 64); err == nil {
			return slog.Uint64(a.Key, n)
		}
	case "bool":
		if b, err := strconv.ParseBool(a.Value); err == nil {
			return slog.Bool(a.Key, b)
		}
	case "float64":
		if f, err := strconv.ParseFloat(a.Value, 64); err == nil {
			return slog.Float64(a.Key, f)
		}
	case "time":
		if t, err := time.Parse(time.RFC3339Nano, a.Value); err == nil {
			return slog.Time(a.Key, t)
		}
	case "duration":
		if d, err := time.ParseDuration(a.Value); err == nil {
			return slog.Duration(a.Key, d)
		}
	case "json":
		return slog.Any(a.Key, json.RawMessage(a.Value))
	}
	return slog.String(a.Key, a.Value)
}

// Replay decodes a guest log payload and hands it to h, tagged with attrs.
// Records below h's level are dropped.
func Replay(ctx context.Context, h slog.Handler, payload []byte, attrs ...slog.Attr) error {
	var w LogMessageWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return fmt.Errorf("decode guest log message: %w", err)
	}

	r := w.Record()
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	if w.Context.RequestID != "" {
		r.AddAttrs(slog.String("request_id", w.Context.RequestID))
	}
	r.AddAttrs(attrs...)
	return h.Handle(ctx, r)
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{Key: attr.Key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = strconv.FormatBool(attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = strconv.FormatFloat(attr.Value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		switch x := v.(type) {
		case nil:
			wire.Type = "any"
			wire.Value = "<nil>"
		case error:
			wire.Type = "error"
			wire.Value = x.Error()
		default:
			if data, err := json.Marshal(x); err == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", x)
			}
		}
	case slog.KindGroup:
		// Groups are flattened to their text form; the wire format is flat.
		wire.Type = "group"
		wire.Value = attr.Value.String()
	default:
		wire.Type = "any"
		wire.Value = attr.Value.String()
	}
	return wire
}
