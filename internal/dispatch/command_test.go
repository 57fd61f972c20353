package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/models"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/response"
)

type fakeResponder struct {
	deferErr error
	sendErr  error

	defers  int
	updates int
	sends   []response.MessageOptions
	choices [][]*dg.ApplicationCommandOptionChoice
}

func (r *fakeResponder) Defer(i *dg.InteractionCreate, ephemeral bool) error {
	r.defers++
	return r.deferErr
}

func (r *fakeResponder) DeferUpdate(i *dg.InteractionCreate) error {
	r.updates++
	return r.deferErr
}

func (r *fakeResponder) Send(i *dg.InteractionCreate, opts response.MessageOptions) error {
	r.sends = append(r.sends, opts)
	return r.sendErr
}

func (r *fakeResponder) SendChoices(i *dg.InteractionCreate, choices []*dg.ApplicationCommandOptionChoice) error {
	r.choices = append(r.choices, choices)
	return nil
}

func (r *fakeResponder) outbound() int {
	return r.defers + r.updates + len(r.sends) + len(r.choices)
}

type fakeCommand struct {
	names     []string
	deferType handlers.CommandDefer
	cooldown  *ratelimit.Limiter
	perms     int64

	executed int
	execErr  error

	autocomplete func() ([]*dg.ApplicationCommandOptionChoice, error)
}

func (c *fakeCommand) Names() []string              { return c.names }
func (c *fakeCommand) Defer() handlers.CommandDefer { return c.deferType }
func (c *fakeCommand) Cooldown() *ratelimit.Limiter { return c.cooldown }
func (c *fakeCommand) RequireBotPerms() int64       { return c.perms }

func (c *fakeCommand) Execute(ctx context.Context, dep handlers.Dependencies) error {
	c.executed++
	return c.execErr
}

type fakeAutocompleteCommand struct {
	fakeCommand
}

func (c *fakeAutocompleteCommand) Autocomplete(ctx context.Context, dep handlers.Dependencies, focused *dg.ApplicationCommandInteractionDataOption) ([]*dg.ApplicationCommandOptionChoice, error) {
	return c.autocomplete()
}

func testEnv(r handlers.Responder, held int64) Env {
	return Env{
		Responder: r,
		Events:    models.NewEventDataService(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		SelfID:    func() string { return "bot" },
		BotPerms:  func(string) (int64, error) { return held, nil },
		Guild:     func(string) *dg.Guild { return nil },
	}
}

func commandInteraction(userID, name string) *dg.InteractionCreate {
	return &dg.InteractionCreate{
		Interaction: &dg.Interaction{
			ID:        "intr1",
			Type:      dg.InteractionApplicationCommand,
			ChannelID: "chan1",
			User:      &dg.User{ID: userID, Username: "tester"},
			Data:      dg.ApplicationCommandInteractionData{Name: name},
		},
	}
}

func TestFindCommand(t *testing.T) {
	base := &fakeCommand{names: []string{"a"}}
	subB := &fakeCommand{names: []string{"a", "b"}}
	subC := &fakeCommand{names: []string{"a", "c"}}

	tests := []struct {
		name     string
		commands []handlers.Command
		parts    []string
		want     handlers.Command
	}{
		{"exact base match", []handlers.Command{base, subB, subC}, []string{"a"}, base},
		{"subcommand match", []handlers.Command{base, subB, subC}, []string{"a", "b"}, subB},
		{"closest match fallback", []handlers.Command{base, subB, subC}, []string{"a", "z"}, base},
		{"no base among longer paths", []handlers.Command{subB, subC}, []string{"a"}, nil},
		{"no match at all", []handlers.Command{base}, []string{"x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindCommand(tt.commands, tt.parts); got != tt.want {
				t.Errorf("FindCommand(%v) = %v, want %v", tt.parts, got, tt.want)
			}
		})
	}
}

func TestCommandProcessSilentDrops(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *CommandPipeline, i *dg.InteractionCreate)
	}{
		{
			name: "self user",
			setup: func(p *CommandPipeline, i *dg.InteractionCreate) {
				i.User.ID = "bot"
			},
		},
		{
			name: "bot user",
			setup: func(p *CommandPipeline, i *dg.InteractionCreate) {
				i.User.Bot = true
			},
		},
		{
			name: "rate limited",
			setup: func(p *CommandPipeline, i *dg.InteractionCreate) {
				p.limiter.Take("user1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &fakeResponder{}
			cmd := &fakeCommand{names: []string{"ping"}}
			p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(1, time.Minute))

			i := commandInteraction("user1", "ping")
			tt.setup(p, i)
			p.Process(context.Background(), i)

			if cmd.executed != 0 {
				t.Errorf("command executed %d times, want 0", cmd.executed)
			}
			if responder.outbound() != 0 {
				t.Errorf("responder saw %d outbound calls, want 0", responder.outbound())
			}
		})
	}
}

func TestCommandProcessUnresolvedIsSilent(t *testing.T) {
	responder := &fakeResponder{}
	p := NewCommandPipeline(testEnv(responder, 0), nil, ratelimit.New(5, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "nope"))

	if responder.outbound() != 0 {
		t.Errorf("responder saw %d outbound calls, want 0", responder.outbound())
	}
}

func TestCommandProcessDeferFailureAborts(t *testing.T) {
	responder := &fakeResponder{deferErr: errors.New("interaction expired")}
	cmd := &fakeCommand{names: []string{"ping"}, deferType: handlers.CommandDeferPublic}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(5, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if cmd.executed != 0 {
		t.Errorf("command executed after failed defer")
	}
	if len(responder.sends) != 0 {
		t.Errorf("got %d sends after failed defer, want 0", len(responder.sends))
	}
}

func TestCommandProcessExecutes(t *testing.T) {
	responder := &fakeResponder{}
	cmd := &fakeCommand{names: []string{"ping"}, deferType: handlers.CommandDeferHidden}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(5, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if cmd.executed != 1 {
		t.Fatalf("command executed %d times, want 1", cmd.executed)
	}
	if responder.defers != 1 {
		t.Errorf("got %d defers, want 1", responder.defers)
	}
}

func TestCommandProcessCooldown(t *testing.T) {
	responder := &fakeResponder{}
	cmd := &fakeCommand{names: []string{"ping"}, cooldown: ratelimit.New(1, time.Minute)}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(10, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))
	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if cmd.executed != 1 {
		t.Fatalf("command executed %d times, want 1", cmd.executed)
	}
	if len(responder.sends) != 1 {
		t.Fatalf("got %d sends, want 1 cooldown embed", len(responder.sends))
	}
}

func TestCommandProcessMissingPerms(t *testing.T) {
	responder := &fakeResponder{}
	cmd := &fakeCommand{
		names: []string{"ping"},
		perms: dg.PermissionSendMessages | dg.PermissionEmbedLinks,
	}
	p := NewCommandPipeline(testEnv(responder, dg.PermissionSendMessages), []handlers.Command{cmd}, ratelimit.New(10, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if cmd.executed != 0 {
		t.Fatalf("command executed despite missing permissions")
	}
	if len(responder.sends) != 1 {
		t.Fatalf("got %d sends, want 1 missing-perms embed", len(responder.sends))
	}
}

func TestCommandProcessErrorIsolated(t *testing.T) {
	responder := &fakeResponder{}
	cmd := &fakeCommand{names: []string{"ping"}, execErr: errors.New("boom")}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(10, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if len(responder.sends) != 1 {
		t.Fatalf("got %d sends, want 1 error embed", len(responder.sends))
	}
}

func TestCommandProcessPanicIsolated(t *testing.T) {
	responder := &fakeResponder{}
	boom := &panicCommand{fakeCommand{names: []string{"ping"}}}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{boom}, ratelimit.New(10, time.Minute))

	p.Process(context.Background(), commandInteraction("user1", "ping"))

	if len(responder.sends) != 1 {
		t.Fatalf("got %d sends, want 1 error embed after panic", len(responder.sends))
	}
}

type panicCommand struct {
	fakeCommand
}

func (c *panicCommand) Execute(ctx context.Context, dep handlers.Dependencies) error {
	panic("boom")
}

func TestAutocompleteTruncation(t *testing.T) {
	responder := &fakeResponder{}

	choices := make([]*dg.ApplicationCommandOptionChoice, 40)
	for i := range choices {
		choices[i] = &dg.ApplicationCommandOptionChoice{Name: "choice"}
	}

	cmd := &fakeAutocompleteCommand{fakeCommand: fakeCommand{
		names: []string{"ping"},
		autocomplete: func() ([]*dg.ApplicationCommandOptionChoice, error) {
			return choices, nil
		},
	}}

	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(10, time.Minute))

	i := commandInteraction("user1", "ping")
	i.Type = dg.InteractionApplicationCommandAutocomplete
	i.Data = dg.ApplicationCommandInteractionData{
		Name: "ping",
		Options: []*dg.ApplicationCommandInteractionDataOption{
			{Name: "query", Type: dg.ApplicationCommandOptionString, Focused: true},
		},
	}

	p.Process(context.Background(), i)

	if len(responder.choices) != 1 {
		t.Fatalf("got %d choice responses, want 1", len(responder.choices))
	}
	if got := len(responder.choices[0]); got != MaxAutocompleteChoices {
		t.Errorf("got %d choices, want %d", got, MaxAutocompleteChoices)
	}
}

func TestAutocompleteWithoutCapabilityIsSilent(t *testing.T) {
	responder := &fakeResponder{}
	cmd := &fakeCommand{names: []string{"ping"}}
	p := NewCommandPipeline(testEnv(responder, 0), []handlers.Command{cmd}, ratelimit.New(10, time.Minute))

	i := commandInteraction("user1", "ping")
	i.Type = dg.InteractionApplicationCommandAutocomplete

	p.Process(context.Background(), i)

	if responder.outbound() != 0 {
		t.Errorf("responder saw %d outbound calls, want 0", responder.outbound())
	}
}

func TestCommandParts(t *testing.T) {
	tests := []struct {
		name string
		data dg.ApplicationCommandInteractionData
		want []string
	}{
		{
			name: "bare command",
			data: dg.ApplicationCommandInteractionData{Name: "ping"},
			want: []string{"ping"},
		},
		{
			name: "subcommand",
			data: dg.ApplicationCommandInteractionData{
				Name: "config",
				Options: []*dg.ApplicationCommandInteractionDataOption{
					{Name: "set", Type: dg.ApplicationCommandOptionSubCommand},
				},
			},
			want: []string{"config", "set"},
		},
		{
			name: "subcommand group",
			data: dg.ApplicationCommandInteractionData{
				Name: "config",
				Options: []*dg.ApplicationCommandInteractionDataOption{
					{
						Name: "alerts",
						Type: dg.ApplicationCommandOptionSubCommandGroup,
						Options: []*dg.ApplicationCommandInteractionDataOption{
							{Name: "enable", Type: dg.ApplicationCommandOptionSubCommand},
						},
					},
				},
			},
			want: []string{"config", "alerts", "enable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &dg.InteractionCreate{Interaction: &dg.Interaction{
				Type: dg.InteractionApplicationCommand,
				Data: tt.data,
			}}

			got := commandParts(i)
			if len(got) != len(tt.want) {
				t.Fatalf("commandParts = %v, want %v", got, tt.want)
			}
			for n := range got {
				if got[n] != tt.want[n] {
					t.Fatalf("commandParts = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
