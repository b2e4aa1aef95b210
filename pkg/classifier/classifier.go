// Package classifier tags JSON documents with an action derived from their
// exact key set.
package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"actiontag/pkg/errors"
	"actiontag/pkg/models"
)

type compiledRule struct {
	keys   map[string]struct{}
	action models.ActionTag
}

// Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	table Table
	rules []compiledRule
}

var defaultClassifier = MustNew(DefaultTable())

// New validates table and compiles it into a Classifier.
func New(table Table) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}

	rules := make([]compiledRule, len(table))
	for i, rule := range table {
		keys := make(map[string]struct{}, len(rule.Keys))
		for _, k := range rule.Keys {
			keys[k] = struct{}{}
		}
		rules[i] = compiledRule{keys: keys, action: rule.Action}
	}

	owned := make(Table, len(table))
	copy(owned, table)

	return &Classifier{table: owned, rules: rules}, nil
}

// MustNew is New that panics on an invalid table.
func MustNew(table Table) *Classifier {
	c, err := New(table)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the classifier built from DefaultTable.
func Default() *Classifier {
	return defaultClassifier
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() Table {
	out := make(Table, len(c.table))
	copy(out, c.table)
	return out
}

// Match returns the action for doc without modifying it. The action key is
// not part of the key set, so matching an annotated document is stable.
func (c *Classifier) Match(doc models.Document) models.ActionTag {
	size := len(doc)
	if _, ok := doc[models.ActionKey]; ok {
		size--
	}

	for _, rule := range c.rules {
		if rule.matches(doc, size) {
			return rule.action
		}
	}
	return models.ActionQuiet
}

func (r compiledRule) matches(doc models.Document, size int) bool {
	if size != len(r.keys) {
		return false
	}
	for k := range r.keys {
		if _, ok := doc[k]; !ok {
			return false
		}
	}
	return true
}

// Classify returns a copy of input with the action key set. Input must be a
// map with string keys; anything else fails with TYPE_MISMATCH.
func (c *Classifier) Classify(input interface{}) (models.Document, error) {
	doc, err := asDocument(input)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	out[models.ActionKey] = string(c.Match(doc))
	return out, nil
}

// ClassifyJSON decodes data and classifies the top-level value.
func (c *Classifier) ClassifyJSON(data []byte) (models.Document, error) {
	value, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Classify(value)
}

func Classify(input interface{}) (models.Document, error) {
	return defaultClassifier.Classify(input)
}

func ClassifyJSON(data []byte) (models.Document, error) {
	return defaultClassifier.ClassifyJSON(data)
}

// Decode parses a single JSON value. Numbers are kept as json.Number so
// they re-encode exactly.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, errors.ErrDecode.WithCause(err)
	}
	// More() reports false on a stray ']' or '}', so read one more token.
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after top-level value", tok)
		}
		return nil, errors.ErrDecode.WithCause(err)
	}
	return value, nil
}

func asDocument(input interface{}) (models.Document, error) {
	switch v := input.(type) {
	case models.Document:
		return v, nil
	case map[string]interface{}:
		return models.Document(v), nil
	case nil:
		return nil, typeMismatch(input)
	}

	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, typeMismatch(input)
	}

	doc := make(models.Document, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		doc[iter.Key().String()] = iter.Value().Interface()
	}
	return doc, nil
}

func typeMismatch(input interface{}) error {
	return errors.ErrTypeMismatch.WithDetail("got", describe(input))
}

func describe(input interface{}) string {
	switch input.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", input)
	}
}
