// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrParse is wrapped by every *ParseError.
var ErrParse = errors.New("envelope: invalid JSON")

// ParseError reports text that is not a well-formed JSON document.
type ParseError struct {
	// Offset is the byte offset of the syntax error, or -1 when the
	// position is unknown (for example, empty input).
	Offset int64
	// Text is the input that failed to parse, kept for diagnostics.
	Text string
	// Cause is the underlying syntax error, if any.
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("envelope: invalid JSON at offset %d: %v", e.Offset, e.Cause)
	}
	return "envelope: invalid JSON: empty document"
}

func (e *ParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrParse, e.Cause}
	}
	return []error{ErrParse}
}

// Document is a read-only view of a parsed JSON value. A Document for
// a missing path is valid and empty: every accessor returns its
// default, ForEach visits nothing.
type Document struct {
	result gjson.Result
}

// Parse validates text and returns its Document.
func Parse(text []byte) (*Document, error) {
	if !gjson.ValidBytes(text) {
		return nil, newParseError(text)
	}
	return &Document{result: gjson.ParseBytes(text)}, nil
}

// newParseError locates the syntax error with encoding/json, which
// reports an offset where gjson only reports validity.
func newParseError(text []byte) *ParseError {
	parseErr := &ParseError{Offset: -1, Text: string(text)}
	var raw json.RawMessage
	err := json.Unmarshal(text, &raw)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Offset = syntaxErr.Offset
		parseErr.Cause = syntaxErr
	} else if err != nil {
		parseErr.Cause = err
	}
	return parseErr
}

// Has reports whether the value at path exists. JSON null counts as
// present.
func (d *Document) Has(path ...string) bool {
	return d.lookup(path).Exists()
}

// Get returns the sub-document at path.
func (d *Document) Get(path ...string) *Document {
	return &Document{result: d.lookup(path)}
}

// Object returns the sub-document at path when it is a JSON object,
// and an empty Document otherwise.
func (d *Document) Object(path ...string) *Document {
	result := d.lookup(path)
	if !result.IsObject() {
		return &Document{}
	}
	return &Document{result: result}
}

// Array returns the sub-document at path when it is a JSON array, and
// an empty Document otherwise.
func (d *Document) Array(path ...string) *Document {
	result := d.lookup(path)
	if !result.IsArray() {
		return &Document{}
	}
	return &Document{result: result}
}

// String returns the value at path as a string, or def when absent.
// Non-string scalars are rendered in their JSON text form.
func (d *Document) String(def string, path ...string) string {
	result := d.lookup(path)
	if !result.Exists() {
		return def
	}
	return result.String()
}

// Uint returns the value at path as an unsigned integer, or def when
// absent. Negative numbers clamp to zero.
func (d *Document) Uint(def uint64, path ...string) uint64 {
	result := d.lookup(path)
	if !result.Exists() {
		return def
	}
	return result.Uint()
}

// Bool returns the value at path as a bool, or def when absent.
func (d *Document) Bool(def bool, path ...string) bool {
	result := d.lookup(path)
	if !result.Exists() {
		return def
	}
	return result.Bool()
}

// Exists reports whether this Document holds a value.
func (d *Document) Exists() bool { return d.result.Exists() }

// IsObject reports whether this Document holds a JSON object.
func (d *Document) IsObject() bool { return d.result.IsObject() }

// IsArray reports whether this Document holds a JSON array.
func (d *Document) IsArray() bool { return d.result.IsArray() }

// Raw returns the JSON text of this Document, or "" when empty.
func (d *Document) Raw() string { return d.result.Raw }

// ForEach calls fn for each key/value pair of an object, or for each
// element of an array (with an empty key), in document order. Iteration
// stops when fn returns false. Scalars and empty Documents are not
// iterated.
func (d *Document) ForEach(fn func(key string, value *Document) bool) {
	if !d.result.IsObject() && !d.result.IsArray() {
		return
	}
	d.result.ForEach(func(key, value gjson.Result) bool {
		return fn(key.String(), &Document{result: value})
	})
}

// Items returns the elements of an array, or nil for anything else.
func (d *Document) Items() []*Document {
	if !d.result.IsArray() {
		return nil
	}
	elements := d.result.Array()
	items := make([]*Document, len(elements))
	for index, element := range elements {
		items[index] = &Document{result: element}
	}
	return items
}

func (d *Document) lookup(path []string) gjson.Result {
	if len(path) == 0 {
		return d.result
	}
	if !d.result.Exists() {
		return gjson.Result{}
	}
	return d.result.Get(joinPath(path))
}

// gjsonSpecial lists the characters gjson interprets inside a path
// component. Each is backslash-escaped so that keys are matched
// literally.
const gjsonSpecial = `\.*?|#@!=<>%`

func joinPath(path []string) string {
	var builder strings.Builder
	for index, segment := range path {
		if index > 0 {
			builder.WriteByte('.')
		}
		for _, r := range segment {
			if strings.ContainsRune(gjsonSpecial, r) {
				builder.WriteByte('\\')
			}
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
