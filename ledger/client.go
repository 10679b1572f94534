package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/registry"
)

// ParseResponseResult is the outcome of the parse-get-* operations.
type ParseResponseResult struct {
	ID         string
	ObjectJSON string
}

// Client issues ledger operations against an engine, tracking each in-flight
// call in a registry.
type Client struct {
	reg *registry.Registry
	eng engine.Engine
}

// NewClient creates a client. The engine must deliver its completions to reg.
func NewClient(reg *registry.Registry, eng engine.Engine) *Client {
	return &Client{reg: reg, eng: eng}
}

// Registry returns the registry tracking the client's calls.
func (c *Client) Registry() *registry.Registry {
	return c.reg
}

// Call starts any catalog operation with positional values and returns the
// raw payload fields. It is the untyped path used by tooling.
func (c *Client) Call(ctx context.Context, op Operation, values ...any) (*registry.Future[[]string], error) {
	return start[[]string](ctx, c, op, nil, values...)
}

// start runs the common operation sequence: validate, begin, invoke, and
// release the handle again if the engine rejects the call.
func start[T any](ctx context.Context, c *Client, op Operation, decode registry.Decoder[T], values ...any) (*registry.Future[T], error) {
	args, err := op.Encode(values...)
	if err != nil {
		return nil, err
	}

	h, fut, err := registry.Begin(c.reg, op.Name, decode)
	if err != nil {
		return nil, err
	}

	if err := c.eng.Invoke(ctx, engine.Call{Op: op.ID, Handle: h, Args: args}); err != nil {
		initErr := initiationError(h, op, err)
		if rerr := c.reg.Release(h, initErr); rerr != nil {
			Logger().Warn("release after rejection failed",
				zap.Stringer("handle", h),
				zap.Error(rerr))
		}
		Logger().Debug("operation rejected",
			zap.String("op", op.Name),
			zap.Stringer("handle", h),
			zap.Error(initErr))
		return nil, initErr
	}

	Logger().Debug("operation started",
		zap.String("op", op.Name),
		zap.Stringer("handle", h))
	return fut, nil
}

func initiationError(h registry.Handle, op Operation, err error) error {
	if e, ok := err.(*errors.Error); ok && e.Phase == errors.PhaseInitiate {
		return e
	}
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindEngineError
	}
	return errors.New(errors.PhaseInitiate, kind).
		Handle(uint32(h)).
		Cause(err).
		Detail("invoke %s", op.Name).
		Build()
}

func decodeJSON(fields []string) (string, error) {
	if len(fields) != 1 {
		return "", fmt.Errorf("expected 1 payload field, got %d", len(fields))
	}
	return fields[0], nil
}

func decodeParsed(fields []string) (ParseResponseResult, error) {
	if len(fields) != 2 {
		return ParseResponseResult{}, fmt.Errorf("expected 2 payload fields, got %d", len(fields))
	}
	return ParseResponseResult{ID: fields[0], ObjectJSON: fields[1]}, nil
}

func (c *Client) json(ctx context.Context, id engine.OperationID, values ...any) (*registry.Future[string], error) {
	return start[string](ctx, c, catalog[id], decodeJSON, values...)
}

func (c *Client) parse(ctx context.Context, id engine.OperationID, response string) (*registry.Future[ParseResponseResult], error) {
	return start[ParseResponseResult](ctx, c, catalog[id], decodeParsed, response)
}
