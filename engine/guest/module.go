package guest

// Operation IDs the echo guest treats specially.
const (
	// RejectOp is rejected synchronously with CommonInvalidParam1.
	RejectOp = 0
	// FailOp is accepted and completed with LedgerInvalidTransaction.
	FailOp = 0xFFFF
)

// echoModule is a minimal guest implementing the engine ABI. Every other
// operation completes successfully with its argument buffer echoed back.
//
//	(import "ledger" "complete" (func (param i32 i32 i32 i32)))
//	(memory (export "memory") 1)
//	(global $heap (mut i32) (i32.const 1024))
//	(func (export "invoke") (param $op i32) (param $h i32) (param $ptr i32) (param $len i32) (result i32)
//	  (if (i32.eqz (local.get $op)) (then (return (i32.const 100))))
//	  (if (i32.eq (local.get $op) (i32.const 0xffff))
//	    (then (call 0 (local.get $h) (i32.const 304) (i32.const 0) (i32.const 0))
//	          (return (i32.const 0))))
//	  (call 0 (local.get $h) (i32.const 0) (local.get $ptr) (local.get $len))
//	  (i32.const 0))
//	(func (export "alloc") (param $size i32) (result i32)
//	  (global.get $heap)
//	  (global.set $heap (i32.add (global.get $heap) (local.get $size))))
//	(func (export "free") (param $ptr i32)
//	  (global.set $heap (local.get $ptr)))
var echoModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,

	// type section
	0x01, 0x19, 0x04,
	0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x00, // complete
	0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f, // invoke
	0x60, 0x01, 0x7f, 0x01, 0x7f, // alloc
	0x60, 0x01, 0x7f, 0x00, // free

	// import section: ledger.complete
	0x02, 0x13, 0x01,
	0x06, 'l', 'e', 'd', 'g', 'e', 'r',
	0x08, 'c', 'o', 'm', 'p', 'l', 'e', 't', 'e',
	0x00, 0x00,

	// function section
	0x03, 0x04, 0x03, 0x01, 0x02, 0x03,

	// memory section: min 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,

	// global section: heap pointer at 1024
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,

	// export section
	0x07, 0x22, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'i', 'n', 'v', 'o', 'k', 'e', 0x00, 0x01,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x02,
	0x04, 'f', 'r', 'e', 'e', 0x00, 0x03,

	// code section
	0x0a, 0x45, 0x03,
	// invoke
	0x30, 0x00,
	0x20, 0x00, 0x45, 0x04, 0x40, 0x41, 0xe4, 0x00, 0x0f, 0x0b,
	0x20, 0x00, 0x41, 0xff, 0xff, 0x03, 0x46, 0x04, 0x40,
	0x20, 0x01, 0x41, 0xb0, 0x02, 0x41, 0x00, 0x41, 0x00, 0x10, 0x00, 0x41, 0x00, 0x0f, 0x0b,
	0x20, 0x01, 0x41, 0x00, 0x20, 0x02, 0x20, 0x03, 0x10, 0x00, 0x41, 0x00, 0x0b,
	// alloc
	0x0b, 0x00,
	0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	// free
	0x06, 0x00,
	0x20, 0x00, 0x24, 0x00, 0x0b,
}

// EchoModule returns the built-in echo guest binary.
func EchoModule() []byte {
	out := make([]byte, len(echoModule))
	copy(out, echoModule)
	return out
}
