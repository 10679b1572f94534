package ledger

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/errors"
)

// Transaction types as they appear in request and reply JSON.
const (
	txnNode             = "0"
	txnNym              = "1"
	txnGetTxn           = "3"
	txnAttrib           = "100"
	txnSchema           = "101"
	txnCredDef          = "102"
	txnGetAttr          = "104"
	txnGetNym           = "105"
	txnGetSchema        = "107"
	txnGetCredDef       = "108"
	txnPoolUpgrade      = "109"
	txnPoolConfig       = "111"
	txnRevocRegDef      = "113"
	txnRevocRegEntry    = "114"
	txnGetRevocRegDef   = "115"
	txnGetRevocReg      = "116"
	txnGetRevocRegDelta = "117"
	txnGetDdo           = "120"
)

const protocolVersion = 2

type object = map[string]any

// SimulatorConfig holds configuration for the ledger simulator.
type SimulatorConfig struct {
	// Now supplies transaction times. nil means time.Now.
	Now func() time.Time

	// Capacity bounds the number of ledger records kept. 0 means 1024.
	Capacity int
}

// Simulator answers ledger operations the way a small single-node ledger
// would. Its Respond method plugs into the simulated engine.
//
// Request builders produce request JSON, signing attaches an ed25519
// signature derived from the submitter DID, and submitted writes are kept so
// later GET requests and the parse operations can find them. Nothing is
// persisted and no consensus takes place.
type Simulator struct {
	now   func() time.Time
	store *lru.Cache
	reqID atomic.Int64
	mu    sync.Mutex
	seqNo int64
}

// record is a committed write.
type record struct {
	operation object
	from      string
	seqNo     int64
	txnTime   int64
}

// NewSimulator creates a simulator with default configuration.
func NewSimulator() *Simulator {
	return NewSimulatorWithConfig(nil)
}

// NewSimulatorWithConfig creates a simulator with custom configuration.
func NewSimulatorWithConfig(cfg *SimulatorConfig) *Simulator {
	capacity := 1024
	now := time.Now
	if cfg != nil {
		if cfg.Capacity > 0 {
			capacity = cfg.Capacity
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
	}
	// lru.New only fails for a non-positive size.
	store, _ := lru.New(capacity)
	s := &Simulator{now: now, store: store}
	s.reqID.Store(now().UnixNano() / int64(time.Millisecond))
	return s
}

// Respond computes the outcome of call.
func (s *Simulator) Respond(call engine.Call) (errors.Code, []string) {
	op, ok := ByID(call.Op)
	if !ok {
		return errors.CommonInvalidState, nil
	}
	if len(call.Args) != len(op.Params) {
		return errors.CommonInvalidStructure, nil
	}

	out, code := s.respond(op.ID, call.Args)
	if code != errors.Success {
		Logger().Debug("simulated ledger failure",
			zap.String("op", op.Name),
			zap.Stringer("handle", call.Handle),
			zap.Stringer("code", code))
		return code, nil
	}
	return errors.Success, out
}

func (s *Simulator) respond(id engine.OperationID, a []string) ([]string, errors.Code) {
	switch id {
	case OpSignAndSubmitRequest:
		signed, code := s.sign(a[1], a[2], a[3])
		if code != errors.Success {
			return nil, code
		}
		return s.submit(a[0], signed[0])
	case OpSubmitRequest:
		return s.submit(a[0], a[1])
	case OpSignRequest:
		return s.sign(a[0], a[1], a[2])

	case OpBuildGetDdoRequest:
		return s.build(a[0], object{"type": txnGetDdo, "dest": a[1]})
	case OpBuildNymRequest:
		return s.buildNym(a[0], a[1], a[2], a[3], a[4])
	case OpBuildAttribRequest:
		return s.buildAttrib(txnAttrib, a[0], a[1], a[2], a[3], a[4])
	case OpBuildGetAttribRequest:
		return s.buildAttrib(txnGetAttr, a[0], a[1], a[3], a[2], a[4])
	case OpBuildGetNymRequest:
		return s.build(a[0], object{"type": txnGetNym, "dest": a[1]})
	case OpBuildSchemaRequest:
		return s.buildSchema(a[0], a[1])
	case OpBuildGetSchemaRequest:
		return s.buildGetSchema(a[0], a[1])
	case OpBuildCredDefRequest:
		return s.buildCredDef(a[0], a[1])
	case OpBuildGetCredDefRequest:
		return s.buildGetCredDef(a[0], a[1])
	case OpBuildNodeRequest:
		return s.buildNode(a[0], a[1], a[2])
	case OpBuildGetTxnRequest:
		seqNo, err := strconv.ParseInt(a[1], 10, 32)
		if err != nil {
			return nil, errors.CommonInvalidParam3
		}
		return s.build(a[0], object{"type": txnGetTxn, "data": seqNo})
	case OpBuildPoolConfigRequest:
		writes, err1 := strconv.ParseBool(a[1])
		force, err2 := strconv.ParseBool(a[2])
		if err1 != nil || err2 != nil {
			return nil, errors.CommonInvalidStructure
		}
		return s.build(a[0], object{"type": txnPoolConfig, "writes": writes, "force": force})
	case OpBuildPoolUpgradeRequest:
		return s.buildPoolUpgrade(a)
	case OpBuildRevocRegDefRequest:
		return s.buildRevocRegDef(a[0], a[1])
	case OpBuildGetRevocRegDefRequest:
		return s.build(a[0], object{"type": txnGetRevocRegDef, "id": a[1]})
	case OpBuildRevocRegEntryRequest:
		return s.buildRevocRegEntry(a[0], a[1], a[2], a[3])
	case OpBuildGetRevocRegRequest:
		ts, err := strconv.ParseInt(a[2], 10, 32)
		if err != nil {
			return nil, errors.CommonInvalidParam4
		}
		return s.build(a[0], object{"type": txnGetRevocReg, "revocRegDefId": a[1], "timestamp": ts})
	case OpBuildGetRevocRegDeltaRequest:
		return s.buildGetRevocRegDelta(a[0], a[1], a[2], a[3])

	case OpParseGetSchemaResponse:
		return s.parseGetSchema(a[0])
	case OpParseGetCredDefResponse:
		return s.parseGetCredDef(a[0])
	case OpParseGetRevocRegDefResponse:
		return s.parseGetRevocRegDef(a[0])
	case OpParseGetRevocRegResponse:
		return s.parseGetRevocReg(a[0])
	case OpParseGetRevocRegDeltaResponse:
		return s.parseGetRevocRegDelta(a[0])
	}
	return nil, errors.CommonInvalidState
}

// build wraps operation in a request envelope from submitterDid.
func (s *Simulator) build(submitterDid string, operation object) ([]string, errors.Code) {
	return encode(object{
		"reqId":           s.reqID.Add(1),
		"identifier":      submitterDid,
		"operation":       operation,
		"protocolVersion": protocolVersion,
	})
}

func (s *Simulator) sign(walletArg, did, requestJSON string) ([]string, errors.Code) {
	if h, err := strconv.ParseInt(walletArg, 10, 32); err != nil || h <= 0 {
		return nil, errors.WalletInvalidHandle
	}
	req, ok := decode(requestJSON)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	if _, ok := req["identifier"]; !ok {
		req["identifier"] = did
	}
	delete(req, "signature")

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.CommonInvalidStructure
	}
	req["signature"] = base58.Encode(ed25519.Sign(signingKey(did), payload))
	return encode(req)
}

func (s *Simulator) submit(poolArg, requestJSON string) ([]string, errors.Code) {
	if h, err := strconv.ParseInt(poolArg, 10, 32); err != nil || h <= 0 {
		return nil, errors.PoolLedgerInvalidPoolHandle
	}
	req, ok := decode(requestJSON)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	operation, _ := req["operation"].(object)
	typ := str(operation["type"])
	if typ == "" {
		return nil, errors.CommonInvalidStructure
	}
	identifier := str(req["identifier"])

	if isWrite(typ) {
		if _, signed := req["signature"]; !signed {
			return nack("REQNACK", req, "missing signature")
		}
		if !verify(req) {
			return nack("REJECT", req, "signature verification failed")
		}
		return s.write(req, operation, typ, identifier)
	}
	return s.read(req, operation, typ, identifier)
}

func isWrite(typ string) bool {
	switch typ {
	case txnNode, txnNym, txnAttrib, txnSchema, txnCredDef,
		txnPoolUpgrade, txnPoolConfig, txnRevocRegDef, txnRevocRegEntry:
		return true
	}
	return false
}

func (s *Simulator) write(req, operation object, typ, identifier string) ([]string, errors.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqNo++
	rec := record{operation: operation, from: identifier, seqNo: s.seqNo, txnTime: s.now().Unix()}

	switch typ {
	case txnNym:
		s.store.Add(nymKey(str(operation["dest"])), rec)
	case txnAttrib:
		for _, key := range attribKeys(operation) {
			s.store.Add(attrKey(str(operation["dest"]), key), rec)
		}
	case txnSchema:
		data, _ := operation["data"].(object)
		s.store.Add(schemaKey(schemaID(identifier, str(data["name"]), str(data["version"]))), rec)
	case txnCredDef:
		s.store.Add(credDefKey(credDefID(identifier, str(operation["signature_type"]), str(operation["ref"]), str(operation["tag"]))), rec)
	case txnRevocRegDef:
		s.store.Add(revRegKey(str(operation["id"])), rec)
	case txnRevocRegEntry:
		key := entriesKey(str(operation["revocRegDefId"]))
		var entries []record
		if v, ok := s.store.Get(key); ok {
			entries, _ = v.([]record)
		}
		s.store.Add(key, append(entries[:len(entries):len(entries)], rec))
	}
	s.store.Add(txnKey(rec.seqNo), rec)

	return encode(object{
		"op": "REPLY",
		"result": object{
			"ver": "1",
			"txn": object{
				"type":     typ,
				"data":     operation,
				"metadata": object{"from": identifier, "reqId": req["reqId"]},
			},
			"txnMetadata": object{"seqNo": rec.seqNo, "txnTime": rec.txnTime},
			"reqSignature": object{
				"type":   "ED25519",
				"values": []object{{"from": identifier, "value": req["signature"]}},
			},
		},
	})
}

func (s *Simulator) lookup(key string) (record, bool) {
	v, ok := s.store.Get(key)
	if !ok {
		return record{}, false
	}
	rec, ok := v.(record)
	return rec, ok
}

// entriesAt returns the newest revocation entry at or before ts.
func (s *Simulator) entriesAt(revocRegDefID string, ts int64) (record, bool) {
	v, ok := s.store.Get(entriesKey(revocRegDefID))
	if !ok {
		return record{}, false
	}
	entries, _ := v.([]record)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].txnTime <= ts {
			return entries[i], true
		}
	}
	return record{}, false
}

// signingKey derives a deterministic key for did.
func signingKey(did string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte(did))
	return ed25519.NewKeyFromSeed(seed[:])
}

func verify(req object) bool {
	sig, err := base58.Decode(str(req["signature"]))
	if err != nil {
		return false
	}
	unsigned := make(object, len(req))
	for k, v := range req {
		if k != "signature" {
			unsigned[k] = v
		}
	}
	payload, err := json.Marshal(unsigned)
	if err != nil {
		return false
	}
	pub := signingKey(str(req["identifier"])).Public().(ed25519.PublicKey)
	return ed25519.Verify(pub, payload, sig)
}

func nack(op string, req object, reason string) ([]string, errors.Code) {
	return encode(object{
		"op":         op,
		"reqId":      req["reqId"],
		"identifier": req["identifier"],
		"reason":     reason,
	})
}

func encode(v object) ([]string, errors.Code) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.CommonInvalidStructure
	}
	return []string{string(b)}, errors.Success
}

// decode parses a JSON object, keeping numbers exact.
func decode(s string) (object, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v object
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func num(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	}
	return 0, false
}

// Store keys carry a prefix per record kind so that identifiers chosen by
// submitters can never address another kind's record.

func txnKey(seqNo int64) string {
	return "txn:" + strconv.FormatInt(seqNo, 10)
}

func nymKey(dest string) string { return "nym:" + dest }
func attrKey(dest, name string) string { return "attr:" + dest + ":" + name }
func schemaKey(id string) string { return "schema:" + id }
func credDefKey(id string) string { return "creddef:" + id }
func revRegKey(id string) string { return "revreg:" + id }
func entriesKey(revocRegDefID string) string { return "entries:" + revocRegDefID }

func schemaID(did, name, version string) string {
	return did + ":2:" + name + ":" + version
}

func credDefID(did, signatureType, ref, tag string) string {
	return did + ":3:" + signatureType + ":" + ref + ":" + tag
}
