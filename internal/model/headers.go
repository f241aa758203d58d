package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"gopkg.in/yaml.v3"
)

// Headers is an ordered, multi-valued mapping of HTTP header names to values.
//
// Reports record headers as a list of [name, [values...]] pairs because a
// name may repeat. Headers merges repeated names by appending their values
// and iterates names in the order they were first added. Names are kept
// exactly as recorded; no canonicalization is applied.
//
// The zero value is an empty mapping ready to use.
type Headers struct {
	names  []string
	values map[string][]string
}

// NewHeaders returns an empty Headers.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// Add appends values to name. The first Add for a name fixes its position.
func (h *Headers) Add(name string, values ...string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	existing, ok := h.values[name]
	if !ok {
		h.names = append(h.names, name)
		h.values[name] = append(make([]string, 0, len(values)), values...)
		return
	}
	h.values[name] = append(existing, values...)
}

// Get returns the values recorded for name, or nil.
func (h *Headers) Get(name string) []string {
	if h == nil {
		return nil
	}
	return h.values[name]
}

// Has reports whether name was recorded.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[name]
	return ok
}

// Names returns header names in first-seen order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.names...)
}

// Len returns the number of distinct names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// All iterates names and values in first-seen order.
func (h *Headers) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		if h == nil {
			return
		}
		for _, name := range h.names {
			if !yield(name, h.values[name]) {
				return
			}
		}
	}
}

// String formats the mapping as {Name: [v1 v2], ...} in first-seen order.
func (h *Headers) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	i := 0
	for name, values := range h.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", name, values)
		i++
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON encodes the mapping as a JSON object whose keys follow
// first-seen order.
func (h *Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for name, values := range h.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []string{}
		}
		val, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// errHeadersJSON is returned when decoding JSON that is not an object of
// string arrays.
var errHeadersJSON = errors.New("headers: expected a JSON object of string arrays")

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (h *Headers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errHeadersJSON
	}

	decoded := NewHeaders()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errHeadersJSON
		}
		var values []string
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("headers: %s: %w", name, err)
		}
		decoded.Add(name, values...)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*h = *decoded
	return nil
}

// MarshalYAML encodes the mapping as a YAML mapping in first-seen order.
func (h *Headers) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for name, values := range h.All() {
		valueNode := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, v := range values {
			valueNode.Content = append(valueNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			valueNode,
		)
	}
	return node, nil
}
