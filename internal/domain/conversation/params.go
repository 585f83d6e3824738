package conversation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Params is a tool-call parameter object indexed by normalized key, so
// "time_of_day", "timeOfDay" and "TimeOfDay" all resolve to the same field.
type Params map[string]json.RawMessage

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	return strings.ReplaceAll(k, "-", "")
}

func parseParams(raw json.RawMessage) (Params, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Params{}, nil
	}
	// Some agents double-encode the parameter object as a JSON string.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parameters must be an object: %w", err)
	}
	out := make(Params, len(fields))
	for k, v := range fields {
		out[normalizeKey(k)] = v
	}
	return out, nil
}

func (p Params) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := p[normalizeKey(k)]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

// str reads a string field. Numbers are accepted and rendered as text.
func (p Params) str(keys ...string) (string, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%s: expected a string", keys[0])
}

// optStr is str that distinguishes absent from empty.
func (p Params) optStr(keys ...string) (*string, error) {
	if _, ok := p.lookup(keys...); !ok {
		return nil, nil
	}
	s, err := p.str(keys...)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// integer reads a whole number given as a JSON number or numeric string.
func (p Params) integer(keys ...string) (*int, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s: expected a number", keys[0])
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return nil, fmt.Errorf("%s: expected a whole number", keys[0])
		}
		v = int(f)
	}
	return &v, nil
}

// boolean reads true/false, also accepting "yes"/"no" strings and 0/1.
func (p Params) boolean(keys ...string) (*bool, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s: expected a boolean", keys[0])
		}
		s = n.String()
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "confirmed":
		b = true
	case "false", "no", "n", "0", "":
		b = false
	default:
		return nil, fmt.Errorf("%s: expected a boolean, got %q", keys[0], s)
	}
	return &b, nil
}

// strList reads an array of strings, or a single string that may hold a
// comma-separated list.
func (p Params) strList(keys ...string) ([]string, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: expected a string or list of strings", keys[0])
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// objects reads an array of objects, or a single object as a one-element list.
func (p Params) objects(keys ...string) ([]Params, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}
	out := make([]Params, 0, len(list))
	for _, item := range list {
		obj, err := parseParams(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keys[0], err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// object reads a nested object. An absent field yields an empty Params.
func (p Params) object(keys ...string) (Params, error) {
	raw, ok := p.lookup(keys...)
	if !ok {
		return Params{}, nil
	}
	return parseParams(raw)
}
