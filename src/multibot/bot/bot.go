package bot

import (
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"

	"github.com/zero-community/multibot/src/multibot/components/admin"
	"github.com/zero-community/multibot/src/multibot/components/birthdays"
	"github.com/zero-community/multibot/src/multibot/components/letters"
	"github.com/zero-community/multibot/src/multibot/components/tickets"
	"github.com/zero-community/multibot/src/multibot/config"
	dutil "github.com/zero-community/multibot/src/shared/discord"
)

type Config struct {
	Community config.Community
	DB        *gorm.DB
	Gate      *admin.Gate
	Admin     *admin.Handler
}

// Bot is one community's gateway session plus its enabled feature
// components.
type Bot struct {
	session   *discordgo.Session
	community config.Community
	admin     *admin.Handler
	letters   *letters.Handler
	birthdays *birthdays.Service
	tickets   *tickets.Handler

	readyOnce sync.Once
}

func New(cfg Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Community.Token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		session:   dg,
		community: cfg.Community,
		admin:     cfg.Admin,
	}

	if cfg.Community.EnableLetters {
		b.letters = letters.NewHandler(cfg.DB, cfg.Gate, cfg.Community)
		log.Printf("bot: [%s] feature cartas enabled", cfg.Community.Name)
	}
	if cfg.Community.EnableBirthdays {
		b.birthdays = birthdays.NewService(cfg.DB, cfg.Community)
		log.Printf("bot: [%s] feature cumpleaños enabled", cfg.Community.Name)
	}
	if cfg.Community.EnableTickets {
		b.tickets = tickets.NewHandler(cfg.DB, cfg.Community)
		log.Printf("bot: [%s] feature tickets enabled", cfg.Community.Name)
	}

	dg.AddHandler(b.handleReady)
	dg.AddHandler(b.handleInteraction)

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return b, nil
}

// Session exposes the underlying gateway session for controller
// registration.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	if b.birthdays != nil {
		b.birthdays.Stop()
	}
	if err := b.session.Close(); err != nil {
		log.Printf("bot: [%s] close session: %v", b.community.Name, err)
	}
}

// commandNames lists the commands this community gets, per feature flags.
// The admin command is always present.
func (b *Bot) commandNames() []string {
	names := []string{CommandEstado}
	if b.letters != nil {
		names = append(names, CommandCarta, CommandCartas, CommandRepartir)
	}
	if b.birthdays != nil {
		names = append(names, CommandCumple, CommandProximos)
	}
	if b.tickets != nil {
		names = append(names, CommandTicket, CommandReclamar, CommandCerrar)
	}
	return names
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("bot: [%s] logged in as %s (id %s)", b.community.Name, event.User.Username, event.User.ID)

	b.readyOnce.Do(func() {
		guildID := dutil.FormatID(b.community.GuildID)
		if err := registerCommands(s, guildID, b.commandNames()); err != nil {
			log.Printf("bot: [%s] sync commands: %v", b.community.Name, err)
		} else {
			log.Printf("bot: [%s] commands synced for guild %s", b.community.Name, guildID)
		}
		if b.birthdays != nil {
			b.birthdays.Start(s)
		}
	})
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case CommandEstado:
		b.admin.HandleEstado(s, i)
	case CommandCarta:
		if b.letters != nil {
			b.letters.HandleCarta(s, i)
		}
	case CommandCartas:
		if b.letters != nil {
			b.letters.HandleCartas(s, i)
		}
	case CommandRepartir:
		if b.letters != nil {
			b.letters.HandleRepartir(s, i)
		}
	case CommandCumple:
		if b.birthdays != nil {
			b.birthdays.HandleCumple(s, i)
		}
	case CommandProximos:
		if b.birthdays != nil {
			b.birthdays.HandleProximos(s, i)
		}
	case CommandTicket:
		if b.tickets != nil {
			b.tickets.HandleTicket(s, i)
		}
	case CommandReclamar:
		if b.tickets != nil {
			b.tickets.HandleClaim(s, i)
		}
	case CommandCerrar:
		if b.tickets != nil {
			b.tickets.HandleClose(s, i)
		}
	}
}
