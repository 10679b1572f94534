package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseComplete,
				Kind:   KindEngineError,
				Path:   []string{"request", "json"},
				Handle: 7,
				Code:   LedgerInvalidTransaction,
				Detail: "bad txn",
			},
			contains: []string{"[complete]", "engine_error", "request.json", "handle 7", "LedgerInvalidTransaction", "bad txn"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseProtocol,
				Kind:  KindUnknownHandle,
			},
			contains: []string{"[protocol]", "unknown_handle"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEngine,
				Kind:   KindInstantiation,
				Detail: "guest start",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[engine]", "instantiation", "guest start", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCancel,
		Kind:  KindCancelled,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to cause")
	}
}

func TestError_Is(t *testing.T) {
	err := UnknownHandle(5, "complete")

	if !errors.Is(err, &Error{Phase: PhaseProtocol, Kind: KindUnknownHandle}) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseComplete, Kind: KindUnknownHandle}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, &Error{Phase: PhaseProtocol, Kind: KindAlreadyResolved}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValidate, KindInvalidInput).
		Path("submitterDid").
		Handle(3).
		Code(CommonInvalidParam3).
		Value("").
		Cause(cause).
		Detail("expected %s", "non-blank").
		Build()

	if err.Phase != PhaseValidate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseValidate)
	}
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
	}
	if len(err.Path) != 1 || err.Path[0] != "submitterDid" {
		t.Errorf("Path = %v, want [submitterDid]", err.Path)
	}
	if err.Handle != 3 {
		t.Errorf("Handle = %d, want 3", err.Handle)
	}
	if err.Code != CommonInvalidParam3 {
		t.Errorf("Code = %v, want %v", err.Code, CommonInvalidParam3)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected non-blank" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestKindHelpers(t *testing.T) {
	inner := FromCode(9, PoolLedgerTimeout)
	wrapped := fmt.Errorf("submit: %w", Cancelled(9, inner))

	if KindOf(wrapped) != KindCancelled {
		t.Errorf("KindOf = %v, want %v", KindOf(wrapped), KindCancelled)
	}
	if !IsKind(wrapped, KindCancelled) {
		t.Error("IsKind should find outer kind")
	}
	if !IsKind(wrapped, KindEngineError) {
		t.Error("IsKind should find kind in cause chain")
	}
	if IsKind(wrapped, KindClosed) {
		t.Error("IsKind matched absent kind")
	}
	if CodeOf(wrapped) != PoolLedgerTimeout {
		t.Errorf("CodeOf = %v, want %v", CodeOf(wrapped), PoolLedgerTimeout)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf of plain error should be empty")
	}
	if CodeOf(nil) != Success {
		t.Error("CodeOf(nil) should be Success")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		name  string
		phase Phase
		kind  Kind
	}{
		{InvalidParam("pool", "is nil"), "InvalidParam", PhaseValidate, KindInvalidInput},
		{Rejected(1, CommonInvalidParam2), "Rejected", PhaseInitiate, KindRejected},
		{FromCode(1, WalletNotFound), "FromCode", PhaseComplete, KindEngineError},
		{UnknownHandle(1, "fail"), "UnknownHandle", PhaseProtocol, KindUnknownHandle},
		{AlreadyResolved(1), "AlreadyResolved", PhaseProtocol, KindAlreadyResolved},
		{Cancelled(1, nil), "Cancelled", PhaseCancel, KindCancelled},
		{Timeout(1, "too old"), "Timeout", PhaseCancel, KindTimeout},
		{Closed(1), "Closed", PhaseLifecycle, KindClosed},
		{InvalidData(1, "short"), "InvalidData", PhaseDecode, KindInvalidData},
		{NotFound(PhaseEngine, "export", "invoke"), "NotFound", PhaseEngine, KindNotFound},
		{Instantiation(errors.New("x")), "Instantiation", PhaseEngine, KindInstantiation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
		})
	}

	if got := Rejected(4, PoolLedgerInvalidPoolHandle).Class(); got != ClassPool {
		t.Errorf("Rejected class = %v, want %v", got, ClassPool)
	}
}
