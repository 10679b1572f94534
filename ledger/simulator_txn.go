package ledger

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/ledger-bridge/errors"
)

var nymRoles = map[string]string{
	"TRUSTEE":         "0",
	"STEWARD":         "2",
	"TRUST_ANCHOR":    "101",
	"ENDORSER":        "101",
	"NETWORK_MONITOR": "201",
}

func (s *Simulator) buildNym(submitterDid, targetDid, verkey, alias, role string) ([]string, errors.Code) {
	op := object{"type": txnNym, "dest": targetDid}
	setIf(op, "verkey", verkey)
	setIf(op, "alias", alias)
	if role != "" {
		code, ok := nymRoles[role]
		if !ok {
			return nil, errors.CommonInvalidStructure
		}
		op["role"] = code
	}
	return s.build(submitterDid, op)
}

// buildAttrib builds ATTRIB and GET_ATTR requests. Exactly one of raw, hash
// and enc must be given.
func (s *Simulator) buildAttrib(typ, submitterDid, targetDid, hash, raw, enc string) ([]string, errors.Code) {
	set := 0
	for _, v := range []string{hash, raw, enc} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.CommonInvalidStructure
	}
	if typ == txnAttrib && raw != "" {
		if _, ok := decode(raw); !ok {
			return nil, errors.CommonInvalidStructure
		}
	}
	op := object{"type": typ, "dest": targetDid}
	setIf(op, "hash", hash)
	setIf(op, "raw", raw)
	setIf(op, "enc", enc)
	return s.build(submitterDid, op)
}

// attribKeys lists the lookup keys an ATTRIB write answers to: each top-level
// name of a raw attribute, or the hash or encrypted value itself.
func attribKeys(op object) []string {
	if raw := str(op["raw"]); raw != "" {
		attrs, _ := decode(raw)
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
	if h := str(op["hash"]); h != "" {
		return []string{h}
	}
	return []string{str(op["enc"])}
}

func (s *Simulator) buildSchema(submitterDid, data string) ([]string, errors.Code) {
	schema, ok := decode(data)
	if !ok || str(schema["name"]) == "" || str(schema["version"]) == "" {
		return nil, errors.CommonInvalidStructure
	}
	attrs, _ := schema["attrNames"].([]any)
	if len(attrs) == 0 {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type": txnSchema,
		"data": object{"name": schema["name"], "version": schema["version"], "attr_names": attrs},
	})
}

func (s *Simulator) buildGetSchema(submitterDid, id string) ([]string, errors.Code) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[1] != "2" {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type": txnGetSchema,
		"dest": parts[0],
		"data": object{"name": parts[2], "version": parts[3]},
	})
}

func (s *Simulator) buildCredDef(submitterDid, data string) ([]string, errors.Code) {
	def, ok := decode(data)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	ref, err := strconv.ParseInt(str(def["schemaId"]), 10, 64)
	if err != nil || str(def["type"]) == "" || str(def["tag"]) == "" || def["value"] == nil {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type":           txnCredDef,
		"ref":            ref,
		"signature_type": def["type"],
		"tag":            def["tag"],
		"data":           def["value"],
	})
}

func (s *Simulator) buildGetCredDef(submitterDid, id string) ([]string, errors.Code) {
	parts := strings.Split(id, ":")
	if len(parts) != 5 || parts[1] != "3" {
		return nil, errors.CommonInvalidStructure
	}
	ref, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type":           txnGetCredDef,
		"origin":         parts[0],
		"signature_type": parts[2],
		"ref":            ref,
		"tag":            parts[4],
	})
}

func (s *Simulator) buildNode(submitterDid, targetDid, data string) ([]string, errors.Code) {
	node, ok := decode(data)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{"type": txnNode, "dest": targetDid, "data": node})
}

func (s *Simulator) buildPoolUpgrade(a []string) ([]string, errors.Code) {
	submitterDid, name, version, action, sha := a[0], a[1], a[2], a[3], a[4]
	if action != "start" && action != "cancel" {
		return nil, errors.CommonInvalidStructure
	}
	timeout, err := strconv.ParseInt(a[5], 10, 32)
	if err != nil {
		return nil, errors.CommonInvalidStructure
	}
	reinstall, err1 := strconv.ParseBool(a[8])
	force, err2 := strconv.ParseBool(a[9])
	if err1 != nil || err2 != nil {
		return nil, errors.CommonInvalidStructure
	}

	op := object{
		"type":      txnPoolUpgrade,
		"name":      name,
		"version":   version,
		"action":    action,
		"sha256":    sha,
		"reinstall": reinstall,
		"force":     force,
	}
	if timeout > 0 {
		op["timeout"] = timeout
	}
	if a[6] != "" {
		schedule, ok := decode(a[6])
		if !ok {
			return nil, errors.CommonInvalidStructure
		}
		op["schedule"] = schedule
	}
	setIf(op, "justification", a[7])
	return s.build(submitterDid, op)
}

func (s *Simulator) buildRevocRegDef(submitterDid, data string) ([]string, errors.Code) {
	def, ok := decode(data)
	if !ok || str(def["id"]) == "" || str(def["revocDefType"]) == "" || str(def["credDefId"]) == "" {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type":         txnRevocRegDef,
		"id":           def["id"],
		"revocDefType": def["revocDefType"],
		"tag":          def["tag"],
		"credDefId":    def["credDefId"],
		"value":        def["value"],
	})
}

func (s *Simulator) buildRevocRegEntry(submitterDid, revocRegDefID, revDefType, value string) ([]string, errors.Code) {
	entry, ok := decode(value)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	return s.build(submitterDid, object{
		"type":          txnRevocRegEntry,
		"revocRegDefId": revocRegDefID,
		"revocDefType":  revDefType,
		"value":         entry,
	})
}

func (s *Simulator) buildGetRevocRegDelta(submitterDid, revocRegDefID, fromArg, toArg string) ([]string, errors.Code) {
	from, err1 := strconv.ParseInt(fromArg, 10, 32)
	to, err2 := strconv.ParseInt(toArg, 10, 32)
	if err1 != nil || err2 != nil || (from > 0 && from > to) {
		return nil, errors.CommonInvalidStructure
	}
	op := object{"type": txnGetRevocRegDelta, "revocRegDefId": revocRegDefID, "to": to}
	if from > 0 {
		op["from"] = from
	}
	return s.build(submitterDid, op)
}

// read answers a GET request. Objects that are not on the ledger produce a
// reply with a null seqNo, as a real pool does.
func (s *Simulator) read(req, op object, typ, identifier string) ([]string, errors.Code) {
	result := object{
		"type":       typ,
		"identifier": identifier,
		"reqId":      req["reqId"],
		"seqNo":      nil,
		"txnTime":    nil,
		"data":       nil,
	}
	found := func(rec record) {
		result["seqNo"] = rec.seqNo
		result["txnTime"] = rec.txnTime
	}

	switch typ {
	case txnGetNym, txnGetDdo:
		dest := str(op["dest"])
		result["dest"] = dest
		if rec, ok := s.lookup(nymKey(dest)); ok {
			nym := object{"dest": dest, "identifier": rec.from, "verkey": rec.operation["verkey"], "role": rec.operation["role"]}
			b, _ := json.Marshal(nym)
			result["data"] = string(b)
			found(rec)
		}

	case txnGetAttr:
		dest := str(op["dest"])
		result["dest"] = dest
		key := str(op["raw"])
		if key == "" {
			key = str(op["hash"]) + str(op["enc"])
		}
		if rec, ok := s.lookup(attrKey(dest, key)); ok {
			if raw := str(rec.operation["raw"]); raw != "" {
				attrs, _ := decode(raw)
				b, _ := json.Marshal(object{key: attrs[key]})
				result["data"] = string(b)
			} else {
				result["data"] = key
			}
			found(rec)
		}

	case txnGetSchema:
		dest := str(op["dest"])
		query, _ := op["data"].(object)
		result["dest"] = dest
		result["data"] = query
		if rec, ok := s.lookup(schemaKey(schemaID(dest, str(query["name"]), str(query["version"])))); ok {
			result["data"] = rec.operation["data"]
			found(rec)
		}

	case txnGetCredDef:
		for _, k := range []string{"origin", "ref", "signature_type", "tag"} {
			result[k] = op[k]
		}
		id := credDefID(str(op["origin"]), str(op["signature_type"]), str(op["ref"]), str(op["tag"]))
		if rec, ok := s.lookup(credDefKey(id)); ok {
			result["data"] = rec.operation["data"]
			found(rec)
		}

	case txnGetRevocRegDef:
		result["id"] = op["id"]
		if rec, ok := s.lookup(revRegKey(str(op["id"]))); ok {
			def := make(object, len(rec.operation))
			for k, v := range rec.operation {
				if k != "type" {
					def[k] = v
				}
			}
			result["data"] = def
			found(rec)
		}

	case txnGetRevocReg:
		id := str(op["revocRegDefId"])
		result["revocRegDefId"] = id
		ts, _ := num(op["timestamp"])
		if rec, ok := s.entriesAt(id, ts); ok {
			result["data"] = object{
				"revocDefType":  rec.operation["revocDefType"],
				"revocRegDefId": id,
				"value":         rec.operation["value"],
			}
			found(rec)
		}

	case txnGetRevocRegDelta:
		id := str(op["revocRegDefId"])
		result["revocRegDefId"] = id
		to, _ := num(op["to"])
		if rec, ok := s.entriesAt(id, to); ok {
			value := object{"accum_to": object{"value": rec.operation["value"], "txnTime": rec.txnTime}}
			if from, ok := num(op["from"]); ok {
				if prev, ok := s.entriesAt(id, from); ok {
					value["accum_from"] = object{"value": prev.operation["value"], "txnTime": prev.txnTime}
				}
			}
			result["data"] = object{
				"revocDefType":  rec.operation["revocDefType"],
				"revocRegDefId": id,
				"value":         value,
			}
			found(rec)
		}

	case txnGetTxn:
		seqNo, _ := num(op["data"])
		if rec, ok := s.lookup(txnKey(seqNo)); ok {
			result["data"] = object{
				"txn":         object{"type": rec.operation["type"], "data": rec.operation, "metadata": object{"from": rec.from}},
				"txnMetadata": object{"seqNo": rec.seqNo, "txnTime": rec.txnTime},
			}
			found(rec)
		}

	default:
		return nil, errors.CommonInvalidStructure
	}

	return encode(object{"op": "REPLY", "result": result})
}

// reply extracts the result of a successful GET reply of the given type.
func reply(response, typ string) (object, errors.Code) {
	resp, ok := decode(response)
	if !ok {
		return nil, errors.CommonInvalidStructure
	}
	if str(resp["op"]) != "REPLY" {
		return nil, errors.LedgerInvalidTransaction
	}
	result, _ := resp["result"].(object)
	if result == nil || str(result["type"]) != typ {
		return nil, errors.CommonInvalidStructure
	}
	if result["seqNo"] == nil || result["data"] == nil {
		return nil, errors.LedgerNotFound
	}
	return result, errors.Success
}

func parsed(id string, obj object) ([]string, errors.Code) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.CommonInvalidStructure
	}
	return []string{id, string(b)}, errors.Success
}

func (s *Simulator) parseGetSchema(response string) ([]string, errors.Code) {
	result, code := reply(response, txnGetSchema)
	if code != errors.Success {
		return nil, code
	}
	data, _ := result["data"].(object)
	if _, ok := data["attr_names"]; !ok {
		return nil, errors.LedgerNotFound
	}
	id := schemaID(str(result["dest"]), str(data["name"]), str(data["version"]))
	return parsed(id, object{
		"ver":       "1.0",
		"id":        id,
		"name":      data["name"],
		"version":   data["version"],
		"attrNames": data["attr_names"],
		"seqNo":     result["seqNo"],
	})
}

func (s *Simulator) parseGetCredDef(response string) ([]string, errors.Code) {
	result, code := reply(response, txnGetCredDef)
	if code != errors.Success {
		return nil, code
	}
	ref := str(result["ref"])
	id := credDefID(str(result["origin"]), str(result["signature_type"]), ref, str(result["tag"]))
	return parsed(id, object{
		"ver":      "1.0",
		"id":       id,
		"schemaId": ref,
		"type":     result["signature_type"],
		"tag":      result["tag"],
		"value":    result["data"],
	})
}

func (s *Simulator) parseGetRevocRegDef(response string) ([]string, errors.Code) {
	result, code := reply(response, txnGetRevocRegDef)
	if code != errors.Success {
		return nil, code
	}
	data, _ := result["data"].(object)
	obj := object{"ver": "1.0"}
	for _, k := range []string{"id", "revocDefType", "tag", "credDefId", "value"} {
		obj[k] = data[k]
	}
	return parsed(str(data["id"]), obj)
}

func (s *Simulator) parseGetRevocReg(response string) ([]string, errors.Code) {
	result, code := reply(response, txnGetRevocReg)
	if code != errors.Success {
		return nil, code
	}
	data, _ := result["data"].(object)
	return parsed(str(result["revocRegDefId"]), object{"ver": "1.0", "value": data["value"]})
}

func (s *Simulator) parseGetRevocRegDelta(response string) ([]string, errors.Code) {
	result, code := reply(response, txnGetRevocRegDelta)
	if code != errors.Success {
		return nil, code
	}
	data, _ := result["data"].(object)
	return parsed(str(result["revocRegDefId"]), object{"ver": "1.0", "value": data["value"]})
}

func setIf(o object, key, value string) {
	if value != "" {
		o[key] = value
	}
}
