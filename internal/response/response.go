package response

import (
	"log/slog"

	dg "github.com/bwmarrin/discordgo"
)

type MessageOptions struct {
	Content    string
	Embeds     []*dg.MessageEmbed
	Files      []*dg.File
	Components []dg.MessageComponent
	Ephemeral  bool

	// Update edits the message the interaction came from instead of
	// posting a followup. Only meaningful after a deferred update.
	Update bool
}

type Responder struct {
	s *dg.Session
	l *slog.Logger
}

func NewSessionResponder(s *dg.Session, l *slog.Logger) *Responder {
	return &Responder{
		s: s,
		l: l,
	}
}

func (r *Responder) Defer(i *dg.InteractionCreate, ephemeral bool) error {
	resp := &dg.InteractionResponse{
		Type: dg.InteractionResponseDeferredChannelMessageWithSource,
	}

	if ephemeral {
		resp.Data = &dg.InteractionResponseData{
			Flags: dg.MessageFlagsEphemeral,
		}
	}

	return r.s.InteractionRespond(i.Interaction, resp)
}

func (r *Responder) DeferUpdate(i *dg.InteractionCreate) error {
	return r.s.InteractionRespond(i.Interaction, &dg.InteractionResponse{
		Type: dg.InteractionResponseDeferredMessageUpdate,
	})
}

func (r *Responder) Send(i *dg.InteractionCreate, opts MessageOptions) error {
	if opts.Update {
		edit := &dg.WebhookEdit{
			Content:    &opts.Content,
			Embeds:     &opts.Embeds,
			Components: &opts.Components,
		}
		_, err := r.s.InteractionResponseEdit(i.Interaction, edit)
		return err
	}

	params := &dg.WebhookParams{
		Content:    opts.Content,
		Embeds:     opts.Embeds,
		Files:      opts.Files,
		Components: opts.Components,
	}

	if opts.Ephemeral {
		params.Flags = dg.MessageFlagsEphemeral
	}

	_, err := r.s.FollowupMessageCreate(i.Interaction, true, params)
	return err
}

func (r *Responder) SendChoices(i *dg.InteractionCreate, choices []*dg.ApplicationCommandOptionChoice) error {
	return r.s.InteractionRespond(i.Interaction, &dg.InteractionResponse{
		Type: dg.InteractionApplicationCommandAutocompleteResult,
		Data: &dg.InteractionResponseData{
			Choices: choices,
		},
	})
}

