package classifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"actiontag/pkg/models"
)

// Rule maps an exact key set to an action. A document matches only when its
// key set equals Keys, ignoring order and the action key itself.
type Rule struct {
	Keys   []string         `json:"keys"`
	Action models.ActionTag `json:"action"`
}

// SortedKeys returns a sorted copy of the rule's keys.
func (r Rule) SortedKeys() []string {
	keys := append([]string(nil), r.Keys...)
	sort.Strings(keys)
	return keys
}

// Table is evaluated in order; the first matching rule wins.
type Table []Rule

func DefaultTable() Table {
	return Table{
		{
			Keys:   []string{"author", "date", "System/planet", "messageSent"},
			Action: models.ActionMessageSent,
		},
		{
			Keys:   []string{"user", "date", "System/planet"},
			Action: models.ActionUserJoin,
		},
	}
}

// Validate rejects tables whose rules could overlap or produce an empty tag.
func (t Table) Validate() error {
	seen := make(map[string]int, len(t))

	for i, rule := range t {
		if rule.Action == "" {
			return fmt.Errorf("rule %d: action is required", i)
		}
		if rule.Action == models.ActionQuiet {
			return fmt.Errorf("rule %d: %q is reserved for the fallback", i, models.ActionQuiet)
		}

		set := make(map[string]struct{}, len(rule.Keys))
		for _, key := range rule.Keys {
			if key == models.ActionKey {
				return fmt.Errorf("rule %d: key %q cannot be matched on", i, models.ActionKey)
			}
			if _, dup := set[key]; dup {
				return fmt.Errorf("rule %d: duplicate key %q", i, key)
			}
			set[key] = struct{}{}
		}

		sig := signature(rule.Keys)
		if prev, ok := seen[sig]; ok {
			return fmt.Errorf("rule %d: key set already used by rule %d", i, prev)
		}
		seen[sig] = i
	}

	return nil
}

func signature(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = strconv.Quote(k)
	}
	sort.Strings(quoted)
	return strings.Join(quoted, ",")
}
