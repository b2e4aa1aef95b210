package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/pkg/errors"
	"actiontag/pkg/models"
)

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		action models.ActionTag
	}{
		{
			name:   "message sent",
			input:  `{"author":"A","date":"D1","System/planet":"Earth","messageSent":"hi"}`,
			action: models.ActionMessageSent,
		},
		{
			name:   "user join",
			input:  `{"user":"U","date":"D2","System/planet":"Mars"}`,
			action: models.ActionUserJoin,
		},
		{
			name:   "missing planet",
			input:  `{"user":"U","date":"D2"}`,
			action: models.ActionQuiet,
		},
		{
			name:   "empty object",
			input:  `{}`,
			action: models.ActionQuiet,
		},
		{
			name:   "superset of message sent",
			input:  `{"author":"A","date":"D1","System/planet":"Earth","messageSent":"hi","extra":1}`,
			action: models.ActionQuiet,
		},
		{
			name:   "subset of message sent",
			input:  `{"author":"A","date":"D1","System/planet":"Earth"}`,
			action: models.ActionQuiet,
		},
		{
			name:   "case sensitive keys",
			input:  `{"User":"U","date":"D2","System/planet":"Mars"}`,
			action: models.ActionQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ClassifyJSON([]byte(tt.input))
			require.NoError(t, err)

			action, ok := doc.Action()
			require.True(t, ok)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestClassify_RejectsNonMapping(t *testing.T) {
	inputs := []interface{}{
		[]interface{}{"x", "y"},
		"text",
		42,
		true,
		nil,
		map[int]string{1: "a"},
	}

	for _, input := range inputs {
		_, err := Classify(input)
		require.Error(t, err)
		assert.True(t, errors.IsTypeMismatch(err), "input %#v", input)
	}
}

func TestClassifyJSON_TopLevelArray(t *testing.T) {
	_, err := ClassifyJSON([]byte(`["x","y"]`))
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "TYPE_MISMATCH")
}

func TestClassifyJSON_InvalidJSON(t *testing.T) {
	for _, input := range []string{`{"a":`, ``, `{} {}`, `{"a":1}]`, `{"a":1}}`, `{"a":1} x`} {
		_, err := ClassifyJSON([]byte(input))
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.IsDecode(err), "input %q", input)
	}
}

func TestClassify_PreservesFields(t *testing.T) {
	nested := map[string]interface{}{"x": []interface{}{1.0, "two"}}
	input := map[string]interface{}{
		"user":          "U",
		"date":          "D2",
		"System/planet": nested,
	}

	doc, err := Classify(input)
	require.NoError(t, err)

	for k, v := range input {
		assert.Equal(t, v, doc[k])
	}
	assert.Len(t, doc, len(input)+1)
	assert.NotContains(t, input, models.ActionKey, "input must not be mutated")
}

func TestClassify_Reclassification(t *testing.T) {
	first, err := ClassifyJSON([]byte(`{"author":"A","date":"D1","System/planet":"Earth","messageSent":"hi"}`))
	require.NoError(t, err)

	second, err := Classify(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stale := first.Clone()
	stale[models.ActionKey] = "userJoin"
	fixed, err := Classify(stale)
	require.NoError(t, err)
	assert.Equal(t, "messageSent", fixed[models.ActionKey])
}

func TestClassify_KeyOrderIndependent(t *testing.T) {
	orders := []string{
		`{"author":"A","date":"D","System/planet":"P","messageSent":"m"}`,
		`{"messageSent":"m","System/planet":"P","date":"D","author":"A"}`,
		`{"date":"D","messageSent":"m","author":"A","System/planet":"P"}`,
	}

	for _, input := range orders {
		doc, err := ClassifyJSON([]byte(input))
		require.NoError(t, err)
		assert.Equal(t, "messageSent", doc[models.ActionKey])
	}
}

func TestClassify_TypedMaps(t *testing.T) {
	doc, err := Classify(map[string]string{"user": "U", "date": "D", "System/planet": "P"})
	require.NoError(t, err)
	assert.Equal(t, "userJoin", doc[models.ActionKey])

	var nilMap map[string]interface{}
	doc, err = Classify(nilMap)
	require.NoError(t, err)
	assert.Equal(t, "quiet", doc[models.ActionKey])
}

func TestNew_FirstMatchWins(t *testing.T) {
	c, err := New(Table{
		{Keys: []string{"a"}, Action: "first"},
		{Keys: []string{"b"}, Action: "second"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ActionTag("first"), c.Match(models.Document{"a": 1}))
	assert.Equal(t, models.ActionTag("second"), c.Match(models.Document{"b": 1}))
	assert.Equal(t, models.ActionQuiet, c.Match(models.Document{"a": 1, "b": 1}))
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name      string
		table     Table
		wantError bool
	}{
		{name: "default", table: DefaultTable()},
		{name: "empty", table: Table{}},
		{
			name: "same set different order",
			table: Table{
				{Keys: []string{"a", "b"}, Action: "x"},
				{Keys: []string{"b", "a"}, Action: "y"},
			},
			wantError: true,
		},
		{
			name:      "missing action",
			table:     Table{{Keys: []string{"a"}}},
			wantError: true,
		},
		{
			name:      "fallback label",
			table:     Table{{Keys: []string{"a"}, Action: models.ActionQuiet}},
			wantError: true,
		},
		{
			name:      "action key",
			table:     Table{{Keys: []string{"action"}, Action: "x"}},
			wantError: true,
		},
		{
			name:      "duplicate key",
			table:     Table{{Keys: []string{"a", "a"}, Action: "x"}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_InvalidTable(t *testing.T) {
	_, err := New(Table{{Keys: []string{"a"}}})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestRules_ReturnsCopy(t *testing.T) {
	rules := Default().Rules()
	rules[0].Action = "changed"
	assert.Equal(t, models.ActionMessageSent, Default().Rules()[0].Action)
}

func TestRule_SortedKeys(t *testing.T) {
	rule := DefaultTable()[1]
	assert.Equal(t, []string{"System/planet", "date", "user"}, rule.SortedKeys())
	assert.Equal(t, "user", rule.Keys[0], "original order is kept")
}
