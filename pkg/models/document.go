package models

import "sort"

// ActionKey is the field classification adds to every document.
const ActionKey = "action"

// Document is a decoded JSON object. Only its key set matters for
// classification.
type Document map[string]interface{}

type ActionTag string

const (
	ActionMessageSent ActionTag = "messageSent"
	ActionUserJoin    ActionTag = "userJoin"
	ActionQuiet       ActionTag = "quiet"
)

func (a ActionTag) String() string {
	return string(a)
}

// Keys returns the document keys in sorted order, excluding the action key.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		if k == ActionKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Action returns the tag stored on the document, if any.
func (d Document) Action() (ActionTag, bool) {
	v, ok := d[ActionKey].(string)
	if !ok {
		return "", false
	}
	return ActionTag(v), true
}

// Clone returns a shallow copy. Nested values are shared.
func (d Document) Clone() Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
