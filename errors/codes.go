package errors

import "strconv"

// Code is a status code reported by the ledger engine, either as the
// synchronous return of an invocation or in a completion callback.
type Code int32

const (
	Success Code = 0

	CommonInvalidParam1    Code = 100
	CommonInvalidParam2    Code = 101
	CommonInvalidParam3    Code = 102
	CommonInvalidParam4    Code = 103
	CommonInvalidParam5    Code = 104
	CommonInvalidParam6    Code = 105
	CommonInvalidParam7    Code = 106
	CommonInvalidParam8    Code = 107
	CommonInvalidParam9    Code = 108
	CommonInvalidParam10   Code = 109
	CommonInvalidParam11   Code = 110
	CommonInvalidParam12   Code = 111
	CommonInvalidState     Code = 112
	CommonInvalidStructure Code = 113
	CommonIOError          Code = 114

	WalletInvalidHandle         Code = 200
	WalletUnknownType           Code = 201
	WalletTypeAlreadyRegistered Code = 202
	WalletAlreadyExists         Code = 203
	WalletNotFound              Code = 204
	WalletIncompatiblePool      Code = 205
	WalletAlreadyOpened         Code = 206
	WalletAccessFailed          Code = 207

	PoolLedgerNotCreated            Code = 300
	PoolLedgerInvalidPoolHandle     Code = 301
	PoolLedgerTerminated            Code = 302
	LedgerNoConsensus               Code = 303
	LedgerInvalidTransaction        Code = 304
	LedgerSecurityError             Code = 305
	PoolLedgerConfigAlreadyExists   Code = 306
	PoolLedgerTimeout               Code = 307
	PoolIncompatibleProtocolVersion Code = 308
	LedgerNotFound                  Code = 309
)

var codeNames = map[Code]string{
	Success:                         "Success",
	CommonInvalidState:              "CommonInvalidState",
	CommonInvalidStructure:          "CommonInvalidStructure",
	CommonIOError:                   "CommonIOError",
	WalletInvalidHandle:             "WalletInvalidHandle",
	WalletUnknownType:               "WalletUnknownType",
	WalletTypeAlreadyRegistered:     "WalletTypeAlreadyRegistered",
	WalletAlreadyExists:             "WalletAlreadyExists",
	WalletNotFound:                  "WalletNotFound",
	WalletIncompatiblePool:          "WalletIncompatiblePool",
	WalletAlreadyOpened:             "WalletAlreadyOpened",
	WalletAccessFailed:              "WalletAccessFailed",
	PoolLedgerNotCreated:            "PoolLedgerNotCreated",
	PoolLedgerInvalidPoolHandle:     "PoolLedgerInvalidPoolHandle",
	PoolLedgerTerminated:            "PoolLedgerTerminated",
	LedgerNoConsensus:               "LedgerNoConsensus",
	LedgerInvalidTransaction:        "LedgerInvalidTransaction",
	LedgerSecurityError:             "LedgerSecurityError",
	PoolLedgerConfigAlreadyExists:   "PoolLedgerConfigAlreadyExists",
	PoolLedgerTimeout:               "PoolLedgerTimeout",
	PoolIncompatibleProtocolVersion: "PoolIncompatibleProtocolVersion",
	LedgerNotFound:                  "LedgerNotFound",
}

// String returns the symbolic name of the code, or its number if unknown.
func (c Code) String() string {
	if c >= CommonInvalidParam1 && c <= CommonInvalidParam12 {
		return "CommonInvalidParam" + strconv.Itoa(int(c-CommonInvalidParam1)+1)
	}
	if name, ok := codeNames[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// Class groups engine codes by the subsystem that produced them.
type Class string

const (
	ClassNone      Class = "none"
	ClassParam     Class = "param"
	ClassState     Class = "state"
	ClassStructure Class = "structure"
	ClassIO        Class = "io"
	ClassWallet    Class = "wallet"
	ClassPool      Class = "pool"
	ClassLedger    Class = "ledger"
	ClassUnknown   Class = "unknown"
)

// Classify maps an engine code onto its class.
func Classify(c Code) Class {
	switch {
	case c == Success:
		return ClassNone
	case c >= CommonInvalidParam1 && c <= CommonInvalidParam12:
		return ClassParam
	case c == CommonInvalidState:
		return ClassState
	case c == CommonInvalidStructure:
		return ClassStructure
	case c == CommonIOError:
		return ClassIO
	case c >= 200 && c < 300:
		return ClassWallet
	case c == LedgerNoConsensus, c == LedgerInvalidTransaction,
		c == LedgerSecurityError, c == LedgerNotFound:
		return ClassLedger
	case c >= 300 && c < 400:
		return ClassPool
	default:
		return ClassUnknown
	}
}

// ParamIndex returns the 1-based argument position for CommonInvalidParamN
// codes, or 0 for every other code.
func (c Code) ParamIndex() int {
	if c >= CommonInvalidParam1 && c <= CommonInvalidParam12 {
		return int(c-CommonInvalidParam1) + 1
	}
	return 0
}
