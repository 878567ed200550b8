// Package jsonpatch applies RFC 6902 style patch operations to a form
// definition. The engine is deliberately narrow: operations may only
// address the /fields subtree, batches are all-or-nothing, and the result
// is revalidated against the form model before it is handed back.
package jsonpatch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/formdeck/formdeck/pkg/forms"
)

// AllowedPathPrefix is the only subtree patch operations may address. This
// is a scope boundary, not a convenience: the model must not be able to
// reach any other part of application state through this channel.
const AllowedPathPrefix = "/fields"

// Operation is a single RFC 6902 patch operation. Value is kept raw so
// that an explicit JSON null stays distinguishable from an absent value.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
	From  string          `json:"from,omitempty"`
}

var validOps = map[string]bool{
	"add":     true,
	"remove":  true,
	"replace": true,
	"move":    true,
	"copy":    true,
	"test":    true,
}

// Validate checks the operation's structure: recognized op kind, a path
// starting with "/", a value for add/replace/test, and a from for
// move/copy.
func (op Operation) Validate() error {
	if !validOps[op.Op] {
		return fmt.Errorf("unknown op %q", op.Op)
	}
	if !strings.HasPrefix(op.Path, "/") {
		return fmt.Errorf("path %q must start with \"/\"", op.Path)
	}
	switch op.Op {
	case "add", "replace", "test":
		if op.Value == nil {
			return fmt.Errorf("op %q requires a \"value\" field", op.Op)
		}
	case "move", "copy":
		if op.From == "" {
			return fmt.Errorf("op %q requires a \"from\" field", op.Op)
		}
	}
	return nil
}

// Apply validates and applies ops to def in array order and returns the
// new, revalidated definition. On any failure the returned definition is
// the unmodified input and the error identifies the stage and, where
// applicable, the offending operation. The input is never mutated.
func Apply(def forms.FormDefinition, ops []Operation) (forms.FormDefinition, error) {
	for i, op := range ops {
		if !strings.HasPrefix(op.Path, AllowedPathPrefix) {
			return def, &PathError{Index: i, Path: op.Path}
		}
		if (op.Op == "move" || op.Op == "copy") && op.From != "" && !strings.HasPrefix(op.From, AllowedPathPrefix) {
			return def, &PathError{Index: i, Path: op.From}
		}
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return def, &MalformedError{Index: i, Reason: err.Error()}
		}
	}

	doc, err := toDocument(def)
	if err != nil {
		return def, &ApplyError{Index: -1, Reason: fmt.Sprintf("encode document: %v", err)}
	}
	for i, op := range ops {
		doc, err = applyOne(doc, op)
		if err != nil {
			return def, &ApplyError{Index: i, Op: op.Op, Reason: err.Error()}
		}
	}

	result, err := fromDocument(doc)
	if err != nil {
		return def, &ResultError{Violations: []forms.ValidationError{{Path: "/fields", Message: err.Error()}}}
	}
	if violations := forms.ValidateDefinition(result); len(violations) > 0 {
		return def, &ResultError{Violations: violations}
	}
	return result, nil
}

func toDocument(def forms.FormDefinition) (any, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc any) (forms.FormDefinition, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return forms.FormDefinition{}, err
	}
	var def forms.FormDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return forms.FormDefinition{}, fmt.Errorf("result does not decode as a form definition: %v", err)
	}
	return def, nil
}

func applyOne(doc any, op Operation) (any, error) {
	tokens, err := parsePointer(op.Path)
	if err != nil {
		return doc, err
	}
	switch op.Op {
	case "add":
		return addAt(doc, tokens, decodeValue(op.Value))
	case "remove":
		doc, _, err = removeAt(doc, tokens)
		return doc, err
	case "replace":
		return replaceAt(doc, tokens, decodeValue(op.Value))
	case "move":
		fromTokens, err := parsePointer(op.From)
		if err != nil {
			return doc, err
		}
		doc, moved, err := removeAt(doc, fromTokens)
		if err != nil {
			return doc, err
		}
		return addAt(doc, tokens, moved)
	case "copy":
		fromTokens, err := parsePointer(op.From)
		if err != nil {
			return doc, err
		}
		v, err := getAt(doc, fromTokens)
		if err != nil {
			return doc, err
		}
		return addAt(doc, tokens, deepCopy(v))
	case "test":
		v, err := getAt(doc, tokens)
		if err != nil {
			return doc, err
		}
		if !reflect.DeepEqual(v, decodeValue(op.Value)) {
			return doc, fmt.Errorf("test failed at %q", op.Path)
		}
		return doc, nil
	}
	return doc, fmt.Errorf("unknown op %q", op.Op)
}

func decodeValue(raw json.RawMessage) any {
	var v any
	// raw was validated as part of a well-formed JSON document, so this
	// only fails for a nil RawMessage, which decodes to nil anyway.
	_ = json.Unmarshal(raw, &v)
	return v
}

func deepCopy(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// parsePointer splits an RFC 6901 pointer into unescaped tokens.
func parsePointer(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("pointer %q must start with \"/\"", path)
	}
	parts := strings.Split(path[1:], "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		parts[i] = p
	}
	return parts, nil
}

func getAt(node any, tokens []string) (any, error) {
	if len(tokens) == 0 {
		return node, nil
	}
	tok, rest := tokens[0], tokens[1:]
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[tok]
		if !ok {
			return nil, fmt.Errorf("path element %q does not exist", tok)
		}
		return getAt(child, rest)
	case []any:
		idx, err := arrayIndex(tok, len(n), false)
		if err != nil {
			return nil, err
		}
		return getAt(n[idx], rest)
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", node, tok)
	}
}

func addAt(node any, tokens []string, value any) (any, error) {
	if len(tokens) == 0 {
		return value, nil
	}
	tok, rest := tokens[0], tokens[1:]
	switch n := node.(type) {
	case map[string]any:
		if len(rest) == 0 {
			n[tok] = value
			return n, nil
		}
		child, ok := n[tok]
		if !ok {
			return nil, fmt.Errorf("path element %q does not exist", tok)
		}
		newChild, err := addAt(child, rest, value)
		if err != nil {
			return nil, err
		}
		n[tok] = newChild
		return n, nil
	case []any:
		if len(rest) == 0 {
			idx, err := arrayIndex(tok, len(n), true)
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(n)+1)
			out = append(out, n[:idx]...)
			out = append(out, value)
			out = append(out, n[idx:]...)
			return out, nil
		}
		idx, err := arrayIndex(tok, len(n), false)
		if err != nil {
			return nil, err
		}
		newChild, err := addAt(n[idx], rest, value)
		if err != nil {
			return nil, err
		}
		n[idx] = newChild
		return n, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", node, tok)
	}
}

func removeAt(node any, tokens []string) (any, any, error) {
	if len(tokens) == 0 {
		return nil, nil, fmt.Errorf("cannot remove the whole document")
	}
	tok, rest := tokens[0], tokens[1:]
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[tok]
		if !ok {
			return nil, nil, fmt.Errorf("path element %q does not exist", tok)
		}
		if len(rest) == 0 {
			delete(n, tok)
			return n, child, nil
		}
		newChild, removed, err := removeAt(child, rest)
		if err != nil {
			return nil, nil, err
		}
		n[tok] = newChild
		return n, removed, nil
	case []any:
		idx, err := arrayIndex(tok, len(n), false)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 {
			removed := n[idx]
			out := make([]any, 0, len(n)-1)
			out = append(out, n[:idx]...)
			out = append(out, n[idx+1:]...)
			return out, removed, nil
		}
		newChild, removed, err := removeAt(n[idx], rest)
		if err != nil {
			return nil, nil, err
		}
		n[idx] = newChild
		return n, removed, nil
	default:
		return nil, nil, fmt.Errorf("cannot descend into %T at %q", node, tok)
	}
}

func replaceAt(node any, tokens []string, value any) (any, error) {
	if len(tokens) == 0 {
		return value, nil
	}
	tok, rest := tokens[0], tokens[1:]
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[tok]
		if !ok {
			return nil, fmt.Errorf("path element %q does not exist", tok)
		}
		if len(rest) == 0 {
			n[tok] = value
			return n, nil
		}
		newChild, err := replaceAt(child, rest, value)
		if err != nil {
			return nil, err
		}
		n[tok] = newChild
		return n, nil
	case []any:
		idx, err := arrayIndex(tok, len(n), false)
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			n[idx] = value
			return n, nil
		}
		newChild, err := replaceAt(n[idx], rest, value)
		if err != nil {
			return nil, err
		}
		n[idx] = newChild
		return n, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", node, tok)
	}
}

// arrayIndex parses an array token. When inserting, "-" means append and
// an index equal to the length is legal.
func arrayIndex(tok string, length int, inserting bool) (int, error) {
	if tok == "-" {
		if !inserting {
			return 0, fmt.Errorf("\"-\" is only valid when adding")
		}
		return length, nil
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", tok)
	}
	limit := length
	if inserting {
		limit = length + 1
	}
	if idx < 0 || idx >= limit {
		return 0, fmt.Errorf("array index %d out of bounds (length %d)", idx, length)
	}
	return idx, nil
}
