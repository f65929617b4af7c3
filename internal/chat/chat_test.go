package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/llm"
	"github.com/nconklindev/sheetdiff/internal/table"
)

func subject(t *testing.T) Subject {
	t.Helper()
	src := table.MustDataset(
		table.Column{Name: "id", Values: []table.Value{table.Int(1), table.Int(2), table.Int(3)}},
		table.Column{Name: "amount", Values: []table.Value{table.Int(10), table.Int(20), table.Null()}},
	)
	tgt := table.MustDataset(
		table.Column{Name: "id", Values: []table.Value{table.Int(1), table.Int(2), table.Int(3)}},
		table.Column{Name: "amount", Values: []table.Value{table.Int(10), table.Int(21), table.Null()}},
	)
	res, err := diff.Compare(src, tgt)
	require.NoError(t, err)
	return Subject{Source: src, Target: tgt, Result: res}
}

// field extracts the JSON that follows label on its own line of prompt.
func field(t *testing.T, prompt, label string) string {
	t.Helper()
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, label+": "); ok {
			return rest
		}
	}
	t.Fatalf("no %q line in prompt:\n%s", label, prompt)
	return ""
}

func TestConversation(t *testing.T) {
	c := NewConversation()
	c.Append(llm.RoleUser, "why?")
	c.Append(llm.RoleAssistant, "because")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "user: why?\nassistant: because", c.Transcript())

	msgs := c.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "why?", c.Messages()[0].Content, "Messages returns a copy")

	c.truncate(1)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Transcript())
}

func TestFormatterAnswer(t *testing.T) {
	s := subject(t)
	prompt, err := Formatter{}.Answer(s, "which rows differ?")
	require.NoError(t, err)

	source := field(t, prompt, "Source Data")
	assert.JSONEq(t, `{"id":[1,2,3],"amount":[10,20,null]}`, source)
	assert.True(t, strings.Index(source, `"id"`) < strings.Index(source, `"amount"`), "column order kept")

	report := field(t, prompt, "Mismatch Report")
	assert.JSONEq(t, `[{"column":"amount","row_index":1,"source_value":20,"target_value":21}]`, report)

	assert.Equal(t, "which rows differ?", field(t, prompt, "User query"))
	assert.NotContains(t, prompt, "truncated")
}

func TestFormatterTruncates(t *testing.T) {
	s := subject(t)
	prompt, err := Formatter{MaxRows: 1}.Answer(s, "q")
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":[1],"amount":[10]}`, field(t, prompt, "Source Data"))
	assert.Contains(t, prompt, "(source truncated to the first 1 of 3 rows)")
	assert.Contains(t, prompt, "(target truncated to the first 1 of 3 rows)")
	assert.Equal(t, int64(1), gjson.Get(field(t, prompt, "Mismatch Report"), "#").Int(), "report is never truncated")
}

func TestFormatterWithoutResult(t *testing.T) {
	s := subject(t)
	s.Result = nil
	prompt, err := Formatter{}.Answer(s, "q")
	require.NoError(t, err)
	assert.Equal(t, "[]", field(t, prompt, "Mismatch Report"))
}

func TestAnswer(t *testing.T) {
	mock := &llm.MockClient{Response: "Row 1 differs: 20 vs 21."}
	a := NewAssistant(mock, DefaultSettings())

	got, err := a.Answer(context.Background(), subject(t), "  what differs?  ")
	require.NoError(t, err)
	assert.Equal(t, "Row 1 differs: 20 vs 21.", got)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "whitespace")
	assert.Contains(t, req.Messages[1].Content, "User query: what differs?")
}

func TestAnswerErrors(t *testing.T) {
	_, err := NewAssistant(&llm.MockClient{}, DefaultSettings()).Answer(context.Background(), subject(t), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = NewAssistant(nil, DefaultSettings()).Answer(context.Background(), subject(t), "q")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	var nilAssistant *Assistant
	_, err = nilAssistant.Answer(context.Background(), subject(t), "q")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}

func TestFollowUp(t *testing.T) {
	mock := &llm.MockClient{Response: "Should I list every row?"}
	c := NewConversation()
	c.Append(llm.RoleUser, "what differs?")
	c.Append(llm.RoleAssistant, "row 1")

	got, err := NewAssistant(mock, DefaultSettings()).FollowUp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Should I list every row?", got)

	req := mock.Calls()[0]
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "user: what differs?\nassistant: row 1")
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name         string
		client       *llm.MockClient
		query        string
		wantErr      error
		wantExchange Exchange
		wantRoles    []string
	}{
		{
			name:         "Answer and follow-up",
			client:       &llm.MockClient{Responses: []string{"row 1", "Want details?"}},
			query:        "what differs?",
			wantExchange: Exchange{Query: "what differs?", Answer: "row 1", FollowUp: "Want details?"},
			wantRoles:    []string{"user", "assistant", "assistant"},
		},
		{
			name:      "Answer fails",
			client:    &llm.MockClient{Err: errors.New("network down")},
			query:     "what differs?",
			wantErr:   errors.New("network down"),
			wantRoles: []string{},
		},
		{
			name:      "Empty query",
			client:    &llm.MockClient{},
			query:     " ",
			wantErr:   ErrEmptyQuery,
			wantRoles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConversation()
			ex, err := NewAssistant(tt.client, DefaultSettings()).Ask(context.Background(), c, subject(t), tt.query)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantExchange, ex)
			}

			roles := []string{}
			for _, m := range c.Messages() {
				roles = append(roles, m.Role)
			}
			assert.Equal(t, tt.wantRoles, roles)
		})
	}
}

// failAfter answers the first call and fails the rest.
type failAfter struct{ calls int }

func (f *failAfter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	if f.calls > 1 {
		return "", errors.New("rate limited")
	}
	return "row 1", nil
}

func TestAskKeepsAnswerWhenFollowUpFails(t *testing.T) {
	c := NewConversation()
	c.Append(llm.RoleUser, "earlier")

	ex, err := NewAssistant(&failAfter{}, DefaultSettings()).Ask(context.Background(), c, subject(t), "what differs?")
	require.NoError(t, err)
	assert.Equal(t, "row 1", ex.Answer)
	assert.Empty(t, ex.FollowUp)
	assert.Equal(t, 3, c.Len())
}

func TestAskRollsBackOnlyItsOwnMessages(t *testing.T) {
	c := NewConversation()
	c.Append(llm.RoleUser, "earlier")
	c.Append(llm.RoleAssistant, "answer")

	_, err := NewAssistant(&llm.MockClient{Err: errors.New("boom")}, DefaultSettings()).
		Ask(context.Background(), c, subject(t), "again")
	require.Error(t, err)
	assert.Equal(t, "user: earlier\nassistant: answer", c.Transcript())
}
