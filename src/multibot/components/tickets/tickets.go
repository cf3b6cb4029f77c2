package tickets

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zero-community/multibot/src/multibot/config"
	"github.com/zero-community/multibot/src/multibot/types"
	dutil "github.com/zero-community/multibot/src/shared/discord"
)

// Topics available in the /ticket command. Values double as choice values.
var topics = map[string]string{
	"soporte":    "Soporte Técnico 🛠️",
	"reporte":    "Reportar Usuario 🚨",
	"dudas":      "Dudas / Consultas ❓",
	"donaciones": "Donaciones 💸",
}

// Handler serves ticket open and close for one community.
type Handler struct {
	db        *gorm.DB
	community config.Community
}

func NewHandler(db *gorm.DB, community config.Community) *Handler {
	return &Handler{db: db, community: community}
}

func (h *Handler) HandleTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if guildID == 0 {
		_ = dutil.RespondEphemeral(s, i, "❌ Error: No se pudo identificar el servidor.")
		return
	}

	topic := dutil.Options(i)["motivo"].StringValue()
	label := topics[topic]
	if label == "" {
		label = topic
	}

	reference := uuid.NewString()[:8]
	opener := dutil.InvokerID(i)

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares the guild id; hide the channel from it.
			ID:   i.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    dutil.FormatID(opener),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}
	for _, roleID := range h.community.TicketSupportRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    dutil.FormatID(roleID),
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	channel, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 "ticket-" + reference,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		log.Printf("tickets: create channel: %v", err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudo crear el ticket. Inténtalo de nuevo.")
		return
	}

	ticket := types.Ticket{
		Reference: reference,
		GuildID:   guildID,
		ChannelID: dutil.ParseID(channel.ID),
		OpenerID:  opener,
		Topic:     topic,
		CreatedAt: time.Now(),
	}
	if err := h.db.Create(&ticket).Error; err != nil {
		log.Printf("tickets: store ticket %s: %v", reference, err)
	}

	intro := &discordgo.MessageEmbed{
		Title:       "🎫 Nuevo Ticket",
		Description: fmt.Sprintf("Motivo: **%s**\nAbierto por <@%d>.\n\nEl equipo de soporte te atenderá pronto. Usa `/cerrar` para cerrar el ticket.", label, opener),
		Color:       0x3498DB,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Ref " + reference},
	}
	if _, err := s.ChannelMessageSendEmbed(channel.ID, intro); err != nil {
		log.Printf("tickets: intro message: %v", err)
	}

	_ = dutil.RespondEphemeral(s, i, fmt.Sprintf("✅ Ticket creado: <#%s>", channel.ID))
}

func (h *Handler) HandleClaim(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID := dutil.ParseID(i.ChannelID)

	var ticket types.Ticket
	if err := h.db.First(&ticket, "channel_id = ? AND closed = ?", channelID, false).Error; err != nil {
		_ = dutil.RespondEphemeral(s, i, "❌ Este canal no es un ticket abierto.")
		return
	}
	if ticket.ClaimedBy != 0 {
		_ = dutil.RespondEphemeral(s, i, fmt.Sprintf("⚠️ Este ticket ya lo atiende <@%d>.", ticket.ClaimedBy))
		return
	}

	claimer := dutil.InvokerID(i)
	if err := h.db.Model(&ticket).Update("claimed_by", claimer).Error; err != nil {
		log.Printf("tickets: claim %s: %v", ticket.Reference, err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudo reclamar el ticket.")
		return
	}

	_ = dutil.RespondEphemeral(s, i, "✅ Has reclamado este ticket.")
	if _, err := s.ChannelMessageSend(i.ChannelID,
		fmt.Sprintf("👮‍♂️ **Atención:** <@%d> se ha encargado de este ticket.", claimer)); err != nil {
		log.Printf("tickets: claim notice: %v", err)
	}
}

func (h *Handler) HandleClose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID := dutil.ParseID(i.ChannelID)

	var ticket types.Ticket
	if err := h.db.First(&ticket, "channel_id = ? AND closed = ?", channelID, false).Error; err != nil {
		_ = dutil.RespondEphemeral(s, i, "❌ Este canal no es un ticket abierto.")
		return
	}

	_ = dutil.RespondEphemeral(s, i, "⚠️ **Cerrando ticket en 5 segundos...**")

	channelName := "ticket-" + ticket.Reference
	if ch, err := s.Channel(i.ChannelID); err == nil {
		channelName = ch.Name
	}

	h.archiveTranscript(s, i, ticket, channelName)

	now := time.Now()
	if err := h.db.Model(&ticket).Updates(map[string]interface{}{
		"closed":    true,
		"closed_at": &now,
	}).Error; err != nil {
		log.Printf("tickets: mark closed %s: %v", ticket.Reference, err)
	}

	time.Sleep(5 * time.Second)
	if _, err := s.ChannelDelete(i.ChannelID); err != nil {
		log.Printf("tickets: delete channel %s: %v", i.ChannelID, err)
	}
}

// archiveTranscript walks the full channel history and uploads it to the
// community's ticket log channel.
func (h *Handler) archiveTranscript(s *discordgo.Session, i *discordgo.InteractionCreate, ticket types.Ticket, channelName string) {
	if h.community.TicketLogChannelID == 0 {
		return
	}

	history, err := fetchHistory(s, i.ChannelID)
	if err != nil {
		log.Printf("tickets: fetch history for %s: %v", ticket.Reference, err)
	}
	transcript := formatTranscript(channelName, dutil.InvokerName(i), dutil.InvokerID(i), time.Now(), history)

	embed := &discordgo.MessageEmbed{
		Title:       "🔒 Ticket Cerrado",
		Description: fmt.Sprintf("Ticket **%s** ha sido cerrado.", channelName),
		Color:       0xE74C3C,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Cerrado por", Value: fmt.Sprintf("<@%d>", dutil.InvokerID(i)), Inline: true},
			{Name: "Canal", Value: channelName, Inline: true},
		},
	}

	_, err = s.ChannelMessageSendComplex(dutil.FormatID(h.community.TicketLogChannelID), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{{
			Name:        fmt.Sprintf("transcript-%s.txt", channelName),
			ContentType: "text/plain",
			Reader:      strings.NewReader(transcript),
		}},
	})
	if err != nil {
		log.Printf("tickets: send transcript for %s: %v", ticket.Reference, err)
	}
}

// fetchHistory pages the channel's messages oldest-first.
func fetchHistory(s *discordgo.Session, channelID string) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	beforeID := ""
	for {
		batch, err := s.ChannelMessages(channelID, 100, beforeID, "", "")
		if err != nil {
			return all, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		beforeID = batch[len(batch)-1].ID
	}
	// The API returns newest first.
	for left, right := 0, len(all)-1; left < right; left, right = left+1, right-1 {
		all[left], all[right] = all[right], all[left]
	}
	return all, nil
}

func formatTranscript(channelName, closerName string, closerID uint64, closedAt time.Time, history []*discordgo.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcripción del Ticket: %s\n", channelName)
	fmt.Fprintf(&b, "Cerrado por: %s (%d)\n", closerName, closerID)
	fmt.Fprintf(&b, "Fecha: %s\n", closedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	for _, msg := range history {
		content := msg.Content
		if len(msg.Embeds) > 0 {
			content += " [Embed]"
		}
		if len(msg.Attachments) > 0 {
			urls := make([]string, 0, len(msg.Attachments))
			for _, att := range msg.Attachments {
				urls = append(urls, att.URL)
			}
			content += fmt.Sprintf(" [Adjuntos: %s]", strings.Join(urls, ", "))
		}
		author := "desconocido"
		if msg.Author != nil {
			author = fmt.Sprintf("%s (%s)", msg.Author.Username, msg.Author.ID)
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"), author, content)
	}
	return b.String()
}
