package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/table"
)

const answerSystemPrompt = `You are a validation assistant that compares the contents of corresponding columns in a source spreadsheet and a target spreadsheet. ` +
	`Work through both sheets cell by cell and answer the user's question with exact values taken from the data. ` +
	`Watch for differences caused by leading or trailing whitespace, letter case and numeric precision, and say when a reported mismatch is only one of those. ` +
	`Report facts from the data in a neutral tone and do not guess.`

const followUpSystemPrompt = "You write follow-up questions based on a conversation history."

// Subject is what the assistant is asked about: both datasets and their diff.
type Subject struct {
	Source *table.Dataset
	Target *table.Dataset
	Result *diff.Result
}

// Formatter turns a subject and a question into a prompt.
type Formatter struct {
	// MaxRows limits how many rows of each dataset are serialized. Zero means
	// all rows. The mismatch report is always complete.
	MaxRows int
}

// Answer builds the user prompt for a question about s.
func (f Formatter) Answer(s Subject, query string) (string, error) {
	source, srcTrunc, err := f.dataset(s.Source)
	if err != nil {
		return "", fmt.Errorf("serialize source: %w", err)
	}
	target, tgtTrunc, err := f.dataset(s.Target)
	if err != nil {
		return "", fmt.Errorf("serialize target: %w", err)
	}

	var mismatches []diff.Mismatch
	if s.Result != nil {
		mismatches = s.Result.Mismatches
	}
	if mismatches == nil {
		mismatches = []diff.Mismatch{}
	}
	report, err := json.Marshal(mismatches)
	if err != nil {
		return "", fmt.Errorf("serialize mismatches: %w", err)
	}

	var b strings.Builder
	b.WriteString("Compare the source and target spreadsheets below. Use their full contents and the mismatch report to answer the user's query with precise values and explanations.\n\n")
	fmt.Fprintf(&b, "Source Data: %s\n", source)
	if srcTrunc {
		fmt.Fprintf(&b, "(source truncated to the first %d of %d rows)\n", f.MaxRows, s.Source.NumRows())
	}
	fmt.Fprintf(&b, "Target Data: %s\n", target)
	if tgtTrunc {
		fmt.Fprintf(&b, "(target truncated to the first %d of %d rows)\n", f.MaxRows, s.Target.NumRows())
	}
	fmt.Fprintf(&b, "Mismatch Report: %s\n", report)
	fmt.Fprintf(&b, "User query: %s\n", query)
	return b.String(), nil
}

// FollowUp builds the prompt asking for a follow-up question.
func (f Formatter) FollowUp(c *Conversation) string {
	return "Based on the following conversation history, write one relevant follow-up question the user could ask next to get more specific information:\n" +
		c.Transcript() + "\n"
}

// dataset serializes ds column-wise as {"column": [v0, v1, ...]} keeping
// column order. It reports whether rows were cut off.
func (f Formatter) dataset(ds *table.Dataset) ([]byte, bool, error) {
	rows := ds.NumRows()
	truncated := false
	if f.MaxRows > 0 && rows > f.MaxRows {
		rows = f.MaxRows
		truncated = true
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range ds.Columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col.Name)
		if err != nil {
			return nil, false, err
		}
		values, err := json.Marshal(col.Values[:rows])
		if err != nil {
			return nil, false, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), truncated, nil
}
