package ledger

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ledger-bridge/engine"
)

// Operation IDs understood by ledger engines. 0 is never a valid operation.
const (
	OpSignAndSubmitRequest engine.OperationID = iota + 1
	OpSubmitRequest
	OpSignRequest
	OpBuildGetDdoRequest
	OpBuildNymRequest
	OpBuildAttribRequest
	OpBuildGetAttribRequest
	OpBuildGetNymRequest
	OpBuildSchemaRequest
	OpBuildGetSchemaRequest
	OpParseGetSchemaResponse
	OpBuildCredDefRequest
	OpBuildGetCredDefRequest
	OpParseGetCredDefResponse
	OpBuildNodeRequest
	OpBuildGetTxnRequest
	OpBuildPoolConfigRequest
	OpBuildPoolUpgradeRequest
	OpBuildRevocRegDefRequest
	OpBuildGetRevocRegDefRequest
	OpParseGetRevocRegDefResponse
	OpBuildRevocRegEntryRequest
	OpBuildGetRevocRegRequest
	OpParseGetRevocRegResponse
	OpBuildGetRevocRegDeltaRequest
	OpParseGetRevocRegDeltaResponse

	opCount = int(OpParseGetRevocRegDeltaResponse)
)

// ResultShape describes the payload an operation completes with.
type ResultShape uint8

const (
	// ResultJSON is a single JSON string.
	ResultJSON ResultShape = iota
	// ResultParsed is an (identifier, JSON object) pair.
	ResultParsed
)

func (s ResultShape) String() string {
	if s == ResultParsed {
		return "(id, json)"
	}
	return "json"
}

// ParamKind selects how a parameter value is validated and encoded.
type ParamKind uint8

const (
	// ParamRequired is a string that must not be blank.
	ParamRequired ParamKind = iota
	// ParamOptional is a string passed through as-is, empty meaning absent.
	ParamOptional
	// ParamPool is a Pool, encoded as its handle.
	ParamPool
	// ParamWallet is a Wallet, encoded as its handle.
	ParamWallet
	// ParamValue is a number or boolean.
	ParamValue
)

// Param describes one operation parameter.
type Param struct {
	Type wit.Type
	Name string
	Kind ParamKind
}

// Operation describes a ledger operation and its parameters.
type Operation struct {
	Name   string
	Params []Param
	ID     engine.OperationID
	Result ResultShape
}

func required(name string) Param { return Param{Name: name, Type: wit.String{}, Kind: ParamRequired} }
func optional(name string) Param { return Param{Name: name, Type: wit.String{}, Kind: ParamOptional} }
func s32(name string) Param      { return Param{Name: name, Type: wit.S32{}, Kind: ParamValue} }
func boolean(name string) Param  { return Param{Name: name, Type: wit.Bool{}, Kind: ParamValue} }

var (
	poolParam   = Param{Name: "pool", Type: wit.S32{}, Kind: ParamPool}
	walletParam = Param{Name: "wallet", Type: wit.S32{}, Kind: ParamWallet}
	submitter   = required("submitterDid")
	target      = required("targetDid")
	data        = required("data")
)

// catalog is indexed by operation ID.
var catalog = [opCount + 1]Operation{
	OpSignAndSubmitRequest: {Name: "sign-and-submit-request", Params: []Param{poolParam, walletParam, submitter, required("requestJson")}},
	OpSubmitRequest:        {Name: "submit-request", Params: []Param{poolParam, required("requestJson")}},
	OpSignRequest:          {Name: "sign-request", Params: []Param{walletParam, submitter, required("requestJson")}},

	OpBuildGetDdoRequest:    {Name: "build-get-ddo-request", Params: []Param{submitter, target}},
	OpBuildNymRequest:       {Name: "build-nym-request", Params: []Param{submitter, target, optional("verkey"), optional("alias"), optional("role")}},
	OpBuildAttribRequest:    {Name: "build-attrib-request", Params: []Param{submitter, target, optional("hash"), optional("raw"), optional("enc")}},
	OpBuildGetAttribRequest: {Name: "build-get-attrib-request", Params: []Param{submitter, target, optional("raw"), optional("hash"), optional("enc")}},
	OpBuildGetNymRequest:    {Name: "build-get-nym-request", Params: []Param{submitter, target}},

	OpBuildSchemaRequest:     {Name: "build-schema-request", Params: []Param{submitter, data}},
	OpBuildGetSchemaRequest:  {Name: "build-get-schema-request", Params: []Param{submitter, required("id")}},
	OpParseGetSchemaResponse: {Name: "parse-get-schema-response", Params: []Param{data}, Result: ResultParsed},

	OpBuildCredDefRequest:     {Name: "build-cred-def-request", Params: []Param{submitter, data}},
	OpBuildGetCredDefRequest:  {Name: "build-get-cred-def-request", Params: []Param{submitter, required("id")}},
	OpParseGetCredDefResponse: {Name: "parse-get-cred-def-response", Params: []Param{data}, Result: ResultParsed},

	OpBuildNodeRequest:       {Name: "build-node-request", Params: []Param{submitter, target, data}},
	OpBuildGetTxnRequest:     {Name: "build-get-txn-request", Params: []Param{submitter, s32("seqNo")}},
	OpBuildPoolConfigRequest: {Name: "build-pool-config-request", Params: []Param{submitter, boolean("writes"), boolean("force")}},
	OpBuildPoolUpgradeRequest: {Name: "build-pool-upgrade-request", Params: []Param{
		submitter, optional("name"), optional("version"), optional("action"), optional("sha256"),
		s32("timeout"), optional("schedule"), optional("justification"), boolean("reinstall"), boolean("force"),
	}},

	OpBuildRevocRegDefRequest:     {Name: "build-revoc-reg-def-request", Params: []Param{submitter, data}},
	OpBuildGetRevocRegDefRequest:  {Name: "build-get-revoc-reg-def-request", Params: []Param{submitter, required("id")}},
	OpParseGetRevocRegDefResponse: {Name: "parse-get-revoc-reg-def-response", Params: []Param{data}, Result: ResultParsed},

	OpBuildRevocRegEntryRequest: {Name: "build-revoc-reg-entry-request", Params: []Param{
		submitter, required("revocRegDefId"), required("revDefType"), optional("value"),
	}},
	OpBuildGetRevocRegRequest:  {Name: "build-get-revoc-reg-request", Params: []Param{submitter, required("id"), s32("timestamp")}},
	OpParseGetRevocRegResponse: {Name: "parse-get-revoc-reg-response", Params: []Param{data}, Result: ResultParsed},

	OpBuildGetRevocRegDeltaRequest:  {Name: "build-get-revoc-reg-delta-request", Params: []Param{submitter, required("id"), s32("from"), s32("to")}},
	OpParseGetRevocRegDeltaResponse: {Name: "parse-get-revoc-reg-delta-response", Params: []Param{data}, Result: ResultParsed},
}

var byName map[string]engine.OperationID

func init() {
	byName = make(map[string]engine.OperationID, opCount)
	for id := 1; id <= opCount; id++ {
		catalog[id].ID = engine.OperationID(id)
		byName[catalog[id].Name] = engine.OperationID(id)
	}
}

// Operations returns every operation in ID order.
func Operations() []Operation {
	out := make([]Operation, opCount)
	copy(out, catalog[1:])
	return out
}

// Lookup finds an operation by its kebab-case name.
func Lookup(name string) (Operation, bool) {
	id, ok := byName[name]
	if !ok {
		return Operation{}, false
	}
	return catalog[id], true
}

// ByID finds an operation by ID.
func ByID(id engine.OperationID) (Operation, bool) {
	if id == 0 || int(id) > opCount {
		return Operation{}, false
	}
	return catalog[id], true
}
