package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ledger-bridge/errors"
)

// Pool is an open connection to a validator pool.
type Pool interface {
	PoolHandle() int32
}

// Wallet is an open wallet.
type Wallet interface {
	WalletHandle() int32
}

// PoolID is a Pool identified by a raw engine handle.
type PoolID int32

func (p PoolID) PoolHandle() int32 { return int32(p) }

// WalletID is a Wallet identified by a raw engine handle.
type WalletID int32

func (w WalletID) WalletHandle() int32 { return int32(w) }

// Encode validates values against the operation's parameters and encodes
// them as engine argument fields. Validation failures carry the parameter
// name as their path.
func (o Operation) Encode(values ...any) ([]string, error) {
	if len(values) != len(o.Params) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("%s takes %d arguments, got %d", o.Name, len(o.Params), len(values)).
			Build()
	}

	args := make([]string, len(values))
	for i, p := range o.Params {
		field, err := p.encode(values[i])
		if err != nil {
			return nil, err
		}
		args[i] = field
	}
	return args, nil
}

func (p Param) encode(v any) (string, error) {
	switch p.Kind {
	case ParamPool:
		if v == nil {
			return "", errors.InvalidParam(p.Name, "must not be nil")
		}
		pool, ok := v.(Pool)
		if !ok {
			return "", p.mismatch(v)
		}
		return strconv.FormatInt(int64(pool.PoolHandle()), 10), nil

	case ParamWallet:
		if v == nil {
			return "", errors.InvalidParam(p.Name, "must not be nil")
		}
		wallet, ok := v.(Wallet)
		if !ok {
			return "", p.mismatch(v)
		}
		return strconv.FormatInt(int64(wallet.WalletHandle()), 10), nil

	case ParamRequired:
		s, ok := v.(string)
		if !ok {
			return "", p.mismatch(v)
		}
		if strings.TrimSpace(s) == "" {
			return "", errors.InvalidParam(p.Name, "must not be null or whitespace")
		}
		return s, nil

	case ParamOptional:
		if v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", p.mismatch(v)
		}
		return s, nil
	}

	switch p.Type.(type) {
	case wit.S32:
		switch n := v.(type) {
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int:
			if int64(n) != int64(int32(n)) {
				return "", errors.InvalidParam(p.Name, fmt.Sprintf("%d overflows s32", n))
			}
			return strconv.Itoa(n), nil
		}
	case wit.S64:
		if n, ok := v.(int64); ok {
			return strconv.FormatInt(n, 10), nil
		}
	case wit.Bool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	}
	return "", p.mismatch(v)
}

func (p Param) mismatch(v any) error {
	return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
		Path(p.Name).
		Value(v).
		Detail("expected %s, got %T", TypeName(p.Type), v).
		Build()
}

// Parse converts textual input into a value suitable for Encode. Pool and
// wallet parameters accept their numeric handle.
func (p Param) Parse(text string) (any, error) {
	switch p.Kind {
	case ParamRequired, ParamOptional:
		return text, nil
	case ParamPool, ParamWallet:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return nil, errors.InvalidParam(p.Name, "expected a numeric handle")
		}
		if p.Kind == ParamPool {
			return PoolID(n), nil
		}
		return WalletID(n), nil
	}

	switch p.Type.(type) {
	case wit.S32:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return nil, errors.InvalidParam(p.Name, "expected s32")
		}
		return int32(n), nil
	case wit.S64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, errors.InvalidParam(p.Name, "expected s64")
		}
		return n, nil
	case wit.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return nil, errors.InvalidParam(p.Name, "expected bool")
		}
		return b, nil
	}
	return text, nil
}

// TypeName returns the WIT spelling of t.
func TypeName(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S32:
		return "s32"
	case wit.S64:
		return "s64"
	case wit.U32:
		return "u32"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
