package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/pkg/configuration"
)

var (
	ErrDraftingDisabled = errors.New("outreach drafting is not configured")
	ErrEmptyDraft       = errors.New("model returned an empty draft")
)

// ChatCompleter is the part of the OpenAI client used for drafting.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type DraftRequest struct {
	Channel string `json:"channel" validate:"omitempty,oneof=email phone letter visit text"`
	Purpose string `json:"purpose" validate:"required,max=500"`
}

type Draft struct {
	ContactID uuid.UUID `json:"contact_id"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Model     string    `json:"model"`
}

const draftSystemPrompt = "You help a nonprofit worker keep in touch with supporters. " +
	"Write warm, concise, personal messages. Never invent facts that are not in the brief."

var draftPrompt = template.Must(template.New("draft").Parse(`Write a {{.Channel}} message to {{.Contact.DisplayName}}.
{{- if .Contact.Relationship}}
Relationship: {{.Contact.Relationship}}.{{end}}
{{- if .Contact.Organization}}
Organization: {{.Contact.Organization}}.{{end}}
{{- if .Contact.LastDonationAt}}
Last gift: {{.Contact.LastDonation.StringFixed 2}} on {{.Contact.LastDonationAt.Format "January 2, 2006"}}.{{end}}
{{- if .Contact.TotalDonation.IsPositive}}
Lifetime giving: {{.Contact.TotalDonation.StringFixed 2}}.{{end}}
{{- range .Recent}}
Previous {{.Channel}} on {{.OccurredAt.Format "January 2, 2006"}}{{if .Summary}}: {{.Summary}}{{end}}{{end}}
Purpose: {{.Purpose}}`))

// DraftService asks a chat model for an outreach message tailored to a contact.
type DraftService struct {
	client   ChatCompleter
	model    string
	contacts contact.Repository
	outreach outreach.Repository
}

// NewDraftService builds a client from opts. Drafting stays disabled when no key is set.
func NewDraftService(opts configuration.OpenAIOptions, contacts contact.Repository, outreachRepo outreach.Repository) *DraftService {
	var client ChatCompleter
	if opts.Enabled() {
		cfg := openai.DefaultConfig(opts.Key)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}
	return NewDraftServiceWithClient(client, opts.Model, contacts, outreachRepo)
}

func NewDraftServiceWithClient(client ChatCompleter, model string, contacts contact.Repository, outreachRepo outreach.Repository) *DraftService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &DraftService{client: client, model: model, contacts: contacts, outreach: outreachRepo}
}

func (s *DraftService) Enabled() bool {
	return s.client != nil
}

func (s *DraftService) Draft(ctx context.Context, ownerID, contactID uuid.UUID, req DraftRequest) (Draft, error) {
	if !s.Enabled() {
		return Draft{}, ErrDraftingDisabled
	}
	c, err := s.contacts.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return Draft{}, err
	}
	history, err := s.outreach.ListByContact(ctx, ownerID, contactID)
	if err != nil {
		return Draft{}, err
	}
	if len(history) > 3 {
		history = history[:3]
	}
	channel := strings.TrimSpace(req.Channel)
	if channel == "" {
		channel = string(outreach.ChannelEmail)
	}

	var prompt strings.Builder
	err = draftPrompt.Execute(&prompt, map[string]interface{}{
		"Channel": channel,
		"Contact": c,
		"Recent":  history,
		"Purpose": strings.TrimSpace(req.Purpose),
	})
	if err != nil {
		return Draft{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: draftSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return Draft{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Draft{}, ErrEmptyDraft
	}
	return Draft{
		ContactID: contactID,
		Channel:   channel,
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:     s.model,
	}, nil
}
