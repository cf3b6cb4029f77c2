package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandEstado   = "estado"
	CommandCarta    = "carta"
	CommandCartas   = "cartas"
	CommandRepartir = "repartir"
	CommandCumple   = "cumple"
	CommandProximos = "proximos"
	CommandTicket   = "ticket"
	CommandReclamar = "reclamar"
	CommandCerrar   = "cerrar"
)

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandEstado: {
		Name:        CommandEstado,
		Description: "[ADMIN] Cambiar estado global del bot y anunciar",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "tipo",
				Description: "Tipo de estado",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Mantenimiento 🚧", Value: "maintenance"},
					{Name: "Activo ✅", Value: "active"},
					{Name: "Apagado 💤", Value: "shutdown"},
					{Name: "Personalizado 📢", Value: "custom"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mensaje",
				Description: "Mensaje para el anuncio (Opcional)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "texto_actividad",
				Description: "Texto del estado (Solo para personalizado)",
			},
		},
	},
	CommandCarta: {
		Name:        CommandCarta,
		Description: "Escribe una carta anónima o firmada",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "destinatario",
				Description: "La persona que recibirá tu carta",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mensaje",
				Description: "Tu mensaje (máx. 2000 caracteres)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "anonima",
				Description: "Enviar sin revelar tu identidad",
			},
		},
	},
	CommandCartas: {
		Name:        CommandCartas,
		Description: "Consulta las cartas que has enviado",
	},
	CommandRepartir: {
		Name:        CommandRepartir,
		Description: "[ADMIN] Reparte las cartas guardadas a sus destinatarios",
	},
	CommandCumple: {
		Name:        CommandCumple,
		Description: "Registra o actualiza tu cumpleaños",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "dia",
				Description: "Día (1-31)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "mes",
				Description: "Mes (1-12)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "anio",
				Description: "Año (Opcional)",
			},
		},
	},
	CommandProximos: {
		Name:        CommandProximos,
		Description: "Mira quién cumple años pronto",
	},
	CommandTicket: {
		Name:        CommandTicket,
		Description: "Abre un ticket de soporte",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "motivo",
				Description: "Motivo del ticket",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Soporte Técnico 🛠️", Value: "soporte"},
					{Name: "Reportar Usuario 🚨", Value: "reporte"},
					{Name: "Dudas / Consultas ❓", Value: "dudas"},
					{Name: "Donaciones 💸", Value: "donaciones"},
				},
			},
		},
	},
	CommandReclamar: {
		Name:        CommandReclamar,
		Description: "Reclama el ticket actual",
	},
	CommandCerrar: {
		Name:        CommandCerrar,
		Description: "Cierra el ticket actual y archiva la transcripción",
	},
}

// registerCommands creates the guild-scoped slash commands for this bot.
func registerCommands(s *discordgo.Session, guildID string, names []string) error {
	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("bot: unknown slash command %q", name)
			continue
		}
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("bot: failed to register command %q: %v", name, err)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("slash command registration errors: %s", strings.Join(failures, "; "))
	}
	return nil
}
