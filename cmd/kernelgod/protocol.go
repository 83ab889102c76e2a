package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/kernelgo"
	"github.com/hupe1980/kernelgo/codec"
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/engine"
)

// Message is a client request.
//
// Kernel operations take operands in args: a JSON string names an array,
// an object {"dtype": "float64", "value": 1.5} is a scalar. Administrative
// operations take their own positional arguments, see handler.admin.
type Message struct {
	ID   gojson.RawMessage   `json:"id,omitempty"`
	Op   string              `json:"op"`
	Args []gojson.RawMessage `json:"args"`
}

// Reply answers a Message. Exactly one of Msg and Error is set.
type Reply struct {
	ID    gojson.RawMessage      `json:"id,omitempty"`
	OK    bool                   `json:"ok"`
	Msg   any                    `json:"msg,omitempty"`
	Error *kernelgo.ErrorPayload `json:"error,omitempty"`
}

type scalarArg struct {
	DType string            `json:"dtype"`
	Value gojson.RawMessage `json:"value"`
}

type adminFunc func(ctx context.Context, args []gojson.RawMessage) (any, error)

type handler struct {
	engine *kernelgo.Engine
	codec  codec.Codec
	admin  map[string]adminFunc
}

func newHandler(e *kernelgo.Engine, c codec.Codec) *handler {
	if c == nil {
		c = codec.Default
	}
	h := &handler{engine: e, codec: c}
	h.admin = map[string]adminFunc{
		"create":     h.create,
		"values":     h.values,
		"register":   h.register,
		"unregister": h.unregister,
		"attach":     h.attach,
		"delete":     h.delete,
		"clear":      h.clear,
		"list":       h.list,
		"registry":   h.registry,
		"info":       h.info,
		"getmemused": h.memUsed,
		"getconfig":  h.config,
		"save":       h.save,
		"load":       h.load,
	}
	return h
}

// HandleRaw decodes and executes one message.
func (h *handler) HandleRaw(ctx context.Context, data []byte) Reply {
	var msg Message
	if err := h.codec.Unmarshal(data, &msg); err != nil {
		return failure(nil, fmt.Errorf("%w: decode message: %w", engine.ErrInvalidRequest, err))
	}
	return h.Handle(ctx, msg)
}

// Handle executes one message.
func (h *handler) Handle(ctx context.Context, msg Message) Reply {
	var (
		out any
		err error
	)
	if fn, ok := h.admin[msg.Op]; ok {
		out, err = fn(ctx, msg.Args)
	} else {
		out, err = h.kernel(ctx, msg.Op, msg.Args)
	}
	if err != nil {
		return failure(msg.ID, err)
	}
	return Reply{ID: msg.ID, OK: true, Msg: out}
}

func failure(id gojson.RawMessage, err error) Reply {
	p := kernelgo.PayloadOf(err)
	return Reply{ID: id, Error: &p}
}

func badArgs(op, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", engine.ErrInvalidRequest, op, fmt.Sprintf(format, args...))
}

// badArg wraps cause as an invalid request without hiding its own kind.
func badArg(op, what string, cause error) error {
	return fmt.Errorf("%w: %s: %s: %w", engine.ErrInvalidRequest, op, what, cause)
}

func (h *handler) kernel(ctx context.Context, op string, args []gojson.RawMessage) (any, error) {
	operands := make([]engine.Operand, len(args))
	for i, raw := range args {
		o, err := h.operand(raw)
		if err != nil {
			return nil, badArg(op, fmt.Sprintf("operand %d", i), err)
		}
		operands[i] = o
	}
	return h.engine.Execute(ctx, op, operands...)
}

func (h *handler) operand(raw gojson.RawMessage) (engine.Operand, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return engine.Operand{}, fmt.Errorf("empty operand")
	}
	switch raw[0] {
	case '"':
		var name string
		if err := h.codec.Unmarshal(raw, &name); err != nil {
			return engine.Operand{}, err
		}
		return engine.Array(name), nil
	case '{':
		var sa scalarArg
		if err := h.codec.Unmarshal(raw, &sa); err != nil {
			return engine.Operand{}, err
		}
		dt, err := dtype.Parse(sa.DType)
		if err != nil {
			return engine.Operand{}, err
		}
		text, err := h.text(sa.Value)
		if err != nil {
			return engine.Operand{}, err
		}
		s, err := dtype.ParseScalar(text, dt)
		if err != nil {
			return engine.Operand{}, err
		}
		return engine.Value(s), nil
	default:
		return engine.Operand{}, fmt.Errorf("expected array name or scalar object, got %s", raw)
	}
}

// text returns a JSON string's contents or any other JSON value's literal
// text, so numbers keep their full precision.
func (h *handler) text(raw gojson.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		err := h.codec.Unmarshal(raw, &s)
		return s, err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("missing value")
	}
	return string(raw), nil
}

func (h *handler) strings(op string, args []gojson.RawMessage, min, max int) ([]string, error) {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return nil, badArgs(op, "unexpected argument count %d", len(args))
	}
	out := make([]string, len(args))
	for i, raw := range args {
		if err := h.codec.Unmarshal(raw, &out[i]); err != nil {
			return nil, badArg(op, fmt.Sprintf("argument %d", i), err)
		}
	}
	return out, nil
}

func (h *handler) create(_ context.Context, args []gojson.RawMessage) (any, error) {
	if len(args) != 2 {
		return nil, badArgs("create", "expects dtype and values")
	}
	var name string
	if err := h.codec.Unmarshal(args[0], &name); err != nil {
		return nil, badArg("create", "dtype", err)
	}
	dt, err := dtype.Parse(name)
	if err != nil {
		return nil, err
	}
	var raws []gojson.RawMessage
	if err := h.codec.Unmarshal(args[1], &raws); err != nil {
		return nil, badArg("create", "values", err)
	}
	values := make([]any, len(raws))
	for i, raw := range raws {
		text, err := h.text(raw)
		if err != nil {
			return nil, badArg("create", fmt.Sprintf("value %d", i), err)
		}
		values[i] = text
	}
	return h.engine.Create(dt, values)
}

func (h *handler) values(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("values", args, 1, 1)
	if err != nil {
		return nil, err
	}
	v, err := h.engine.Values(a[0])
	if err != nil {
		return nil, err
	}
	if fs, ok := v.([]float64); ok {
		return floatsJSON(fs), nil
	}
	return v, nil
}

// floatsJSON spells non-finite floats as strings, which JSON numbers cannot
// carry. dtype.ParseScalar reads them back.
func floatsJSON(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		switch {
		case math.IsNaN(f), math.IsInf(f, 0):
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		default:
			out[i] = f
		}
	}
	return out
}

func (h *handler) register(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("register", args, 2, 2)
	if err != nil {
		return nil, err
	}
	if err := h.engine.Register(a[0], a[1]); err != nil {
		return nil, err
	}
	return h.engine.Attach(a[1])
}

func (h *handler) unregister(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("unregister", args, 1, 1)
	if err != nil {
		return nil, err
	}
	if err := h.engine.Unregister(a[0]); err != nil {
		return nil, err
	}
	return "unregistered " + a[0], nil
}

func (h *handler) attach(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("attach", args, 1, 1)
	if err != nil {
		return nil, err
	}
	return h.engine.Attach(a[0])
}

func (h *handler) delete(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("delete", args, 1, 1)
	if err != nil {
		return nil, err
	}
	if err := h.engine.Delete(a[0]); err != nil {
		return nil, err
	}
	return "deleted " + a[0], nil
}

func (h *handler) clear(_ context.Context, args []gojson.RawMessage) (any, error) {
	if _, err := h.strings("clear", args, 0, 0); err != nil {
		return nil, err
	}
	return map[string]int{"removed": h.engine.Clear()}, nil
}

func (h *handler) list(_ context.Context, args []gojson.RawMessage) (any, error) {
	if _, err := h.strings("list", args, 0, 0); err != nil {
		return nil, err
	}
	return h.engine.List(), nil
}

func (h *handler) registry(_ context.Context, args []gojson.RawMessage) (any, error) {
	if _, err := h.strings("registry", args, 0, 0); err != nil {
		return nil, err
	}
	return h.engine.ListRegistry(), nil
}

func (h *handler) info(_ context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("info", args, 1, 1)
	if err != nil {
		return nil, err
	}
	return h.engine.Info(a[0])
}

func (h *handler) memUsed(_ context.Context, args []gojson.RawMessage) (any, error) {
	if _, err := h.strings("getmemused", args, 0, 0); err != nil {
		return nil, err
	}
	return h.engine.MemoryUsage(), nil
}

func (h *handler) config(_ context.Context, args []gojson.RawMessage) (any, error) {
	if _, err := h.strings("getconfig", args, 0, 0); err != nil {
		return nil, err
	}
	return h.engine.Config(), nil
}

func (h *handler) save(ctx context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("save", args, 1, -1)
	if err != nil {
		return nil, err
	}
	return h.engine.Save(ctx, a[0], a[1:]...)
}

func (h *handler) load(ctx context.Context, args []gojson.RawMessage) (any, error) {
	a, err := h.strings("load", args, 1, 1)
	if err != nil {
		return nil, err
	}
	return h.engine.Load(ctx, a[0])
}
