package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Action json.RawMessage `json:"action"`
	Params json.RawMessage `json:"params"`
}

var decoders = map[string]func(json.RawMessage) (Instruction, error){
	ActionCreateDocument:  decodeInto[CreateDocument],
	ActionReadDocument:    decodeInto[ReadDocument],
	ActionReadWiki:        decodeInto[ReadWiki],
	ActionCreateBitable:   decodeInto[CreateBitable],
	ActionSearchDocuments: decodeInto[SearchDocuments],
	ActionSearchBitable:   decodeInto[SearchBitable],
}

// ParseInstruction decodes reply as a JSON instruction. It returns false
// when reply is not valid JSON, in which case the caller should treat the
// reply as plain text. A prose answer that happens to be valid JSON is
// indistinguishable from an instruction.
func ParseInstruction(reply string) (Instruction, bool) {
	raw := bytes.TrimSpace([]byte(reply))
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, false
	}
	if raw[0] != '{' {
		// Scalars and arrays carry neither an action nor params.
		return Unrecognized{}, true
	}
	var decoded envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false
	}

	name, isString := actionName(decoded.Action)
	if !isString {
		return Unrecognized{Name: string(bytes.TrimSpace(decoded.Action)), Params: decoded.Params}, true
	}
	decode, ok := decoders[name]
	if !ok {
		return Unrecognized{Name: name, Params: decoded.Params}, true
	}
	instruction, err := decode(decoded.Params)
	if err != nil {
		return Invalid{Name: name, Reason: err.Error()}, true
	}
	return instruction, true
}

// actionName reports the action as a string. A missing or null action is the
// empty name; any other non-string value is reported as not a string.
func actionName(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", true
	}
	var name string
	if err := json.Unmarshal(trimmed, &name); err != nil {
		return "", false
	}
	return name, true
}

func decodeInto[T Instruction](params json.RawMessage) (Instruction, error) {
	var value T
	if len(params) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return value, nil
	}
	if err := json.Unmarshal(params, &value); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", value.Action(), err)
	}
	return value, nil
}
