// Package chat answers questions about a comparison through a completion
// service and keeps the conversation around them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nconklindev/sheetdiff/internal/llm"
	"github.com/nconklindev/sheetdiff/internal/log"
)

var (
	ErrEmptyQuery           = errors.New("query is empty")
	ErrAssistantUnavailable = errors.New("assistant is not configured")
)

// Settings tune the completion calls.
type Settings struct {
	Model             string
	AnswerMaxTokens   int
	FollowUpMaxTokens int
	Temperature       float64
	// MaxPromptRows limits the rows of each dataset put in a prompt; zero
	// sends everything.
	MaxPromptRows int
}

func DefaultSettings() Settings {
	return Settings{
		Model:             "gpt-4o",
		AnswerMaxTokens:   1500,
		FollowUpMaxTokens: 1000,
		Temperature:       0.1,
	}
}

// Exchange is the outcome of one question. FollowUp is empty when no
// follow-up question could be produced.
type Exchange struct {
	Query    string
	Answer   string
	FollowUp string
}

// Assistant answers questions about a Subject.
type Assistant struct {
	client   llm.Client
	settings Settings
	format   Formatter
}

func NewAssistant(client llm.Client, settings Settings) *Assistant {
	return &Assistant{
		client:   client,
		settings: settings,
		format:   Formatter{MaxRows: settings.MaxPromptRows},
	}
}

// Answer asks the completion service about s and returns its reply.
func (a *Assistant) Answer(ctx context.Context, s Subject, query string) (string, error) {
	if a == nil || a.client == nil {
		return "", ErrAssistantUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	prompt, err := a.format.Answer(s, query)
	if err != nil {
		return "", err
	}

	answer, err := a.client.Complete(ctx, llm.Request{
		Model: a.settings.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   a.settings.AnswerMaxTokens,
		Temperature: a.settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("answer query: %w", err)
	}
	return answer, nil
}

// FollowUp asks for a question the user could ask next, given c.
func (a *Assistant) FollowUp(ctx context.Context, c *Conversation) (string, error) {
	if a == nil || a.client == nil {
		return "", ErrAssistantUnavailable
	}

	question, err := a.client.Complete(ctx, llm.Request{
		Model: a.settings.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: followUpSystemPrompt},
			{Role: llm.RoleUser, Content: a.format.FollowUp(c)},
		},
		MaxTokens:   a.settings.FollowUpMaxTokens,
		Temperature: a.settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate follow-up: %w", err)
	}
	return question, nil
}

// Ask records query in c, answers it, records the answer and then a
// follow-up question. If answering fails, c is left as it was. A failed
// follow-up is logged and the answer is kept.
func (a *Assistant) Ask(ctx context.Context, c *Conversation, s Subject, query string) (Exchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Exchange{}, ErrEmptyQuery
	}

	mark := c.Len()
	c.Append(llm.RoleUser, query)

	answer, err := a.Answer(ctx, s, query)
	if err != nil {
		c.truncate(mark)
		return Exchange{}, err
	}
	c.Append(llm.RoleAssistant, answer)

	ex := Exchange{Query: query, Answer: answer}

	followUp, err := a.FollowUp(ctx, c)
	if err != nil {
		log.WithError(err).Warn("follow-up question failed")
		return ex, nil
	}
	if followUp != "" {
		c.Append(llm.RoleAssistant, followUp)
		ex.FollowUp = followUp
	}
	return ex, nil
}
