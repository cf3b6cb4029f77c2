package letters

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"

	"github.com/zero-community/multibot/src/multibot/components/admin"
	"github.com/zero-community/multibot/src/multibot/config"
	"github.com/zero-community/multibot/src/multibot/types"
	dutil "github.com/zero-community/multibot/src/shared/discord"
)

// maxPerSender caps how many letters one member may leave per guild.
const maxPerSender = 4

// errLimitReached refuses a letter once the sender has used their quota.
var errLimitReached = errors.New("letters: sender limit reached")

// store is the persistence surface the handlers need.
type store interface {
	CountBySender(guildID, senderID uint64) (int64, error)
	BySender(guildID, senderID uint64) ([]types.Letter, error)
	Undelivered(guildID uint64) ([]types.Letter, error)
	Save(letter *types.Letter) error
	MarkDelivered(id uint64, at time.Time) error
}

type gormStore struct {
	db *gorm.DB
}

func (g *gormStore) CountBySender(guildID, senderID uint64) (int64, error) {
	var count int64
	err := g.db.Model(&types.Letter{}).
		Where("guild_id = ? AND sender_id = ?", guildID, senderID).
		Count(&count).Error
	return count, err
}

func (g *gormStore) BySender(guildID, senderID uint64) ([]types.Letter, error) {
	var rows []types.Letter
	err := g.db.Where("guild_id = ? AND sender_id = ?", guildID, senderID).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (g *gormStore) Undelivered(guildID uint64) ([]types.Letter, error) {
	var rows []types.Letter
	err := g.db.Where("guild_id = ? AND delivered = ?", guildID, false).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (g *gormStore) Save(letter *types.Letter) error {
	return g.db.Create(letter).Error
}

func (g *gormStore) MarkDelivered(id uint64, at time.Time) error {
	return g.db.Model(&types.Letter{ID: id}).Updates(map[string]interface{}{
		"delivered":    true,
		"delivered_at": &at,
	}).Error
}

// Handler serves the letter commands: /carta stores one, /cartas lists the
// sender's own, /repartir (admin) delivers everything stored to its
// recipients.
type Handler struct {
	store     store
	gate      *admin.Gate
	community config.Community
}

func NewHandler(db *gorm.DB, gate *admin.Gate, community config.Community) *Handler {
	return &Handler{store: &gormStore{db: db}, gate: gate, community: community}
}

// submit enforces the per-sender quota before storing.
func (h *Handler) submit(letter *types.Letter) error {
	count, err := h.store.CountBySender(letter.GuildID, letter.SenderID)
	if err != nil {
		return err
	}
	if count >= maxPerSender {
		return errLimitReached
	}
	return h.store.Save(letter)
}

func (h *Handler) HandleCarta(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if guildID == 0 {
		_ = dutil.RespondEphemeral(s, i, "❌ Error: No se pudo identificar el servidor.")
		return
	}

	opts := dutil.Options(i)
	recipient := opts["destinatario"].UserValue(s)
	anonymous := false
	if opt, ok := opts["anonima"]; ok {
		anonymous = opt.BoolValue()
	}

	letter := types.Letter{
		GuildID:       guildID,
		SenderID:      dutil.InvokerID(i),
		SenderName:    dutil.InvokerName(i),
		RecipientID:   dutil.ParseID(recipient.ID),
		RecipientName: recipient.Username,
		Body:          opts["mensaje"].StringValue(),
		Anonymous:     anonymous,
		CreatedAt:     time.Now(),
	}

	switch err := h.submit(&letter); {
	case errors.Is(err, errLimitReached):
		_ = dutil.RespondEphemeral(s, i,
			fmt.Sprintf("⛔ **Has alcanzado el límite de %d cartas.**\n¡Deja algo de amor para los demás! 😉", maxPerSender))
		return
	case err != nil:
		log.Printf("letters: store letter: %v", err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudo guardar la carta. Inténtalo de nuevo.")
		return
	}

	h.notifyRecipients(s, letter)

	embed := &discordgo.MessageEmbed{
		Title:       "¡Carta Guardada! 💌",
		Description: fmt.Sprintf("Carta lista para **%s**. Se enviará el 14.", recipient.Username),
		Color:       0x2ECC71,
	}
	if anonymous {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Tu identidad está segura 🤫"}
	}
	if err := dutil.RespondEphemeralEmbed(s, i, embed); err != nil {
		log.Printf("letters: confirm letter: %v", err)
	}
}

func (h *Handler) HandleCartas(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if guildID == 0 {
		_ = dutil.RespondEphemeral(s, i, "❌ Error: No se pudo identificar el servidor.")
		return
	}

	rows, err := h.store.BySender(guildID, dutil.InvokerID(i))
	if err != nil {
		log.Printf("letters: list for sender %d: %v", dutil.InvokerID(i), err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudieron consultar tus cartas.")
		return
	}
	if len(rows) == 0 {
		_ = dutil.RespondEphemeral(s, i, "📭 No has enviado ninguna carta todavía.")
		return
	}

	if err := dutil.RespondEphemeralEmbed(s, i, sentLettersEmbed(rows)); err != nil {
		log.Printf("letters: respond cartas: %v", err)
	}
}

// HandleRepartir delivers every stored letter to its recipient's DMs. Admin
// gated; per-letter failures are logged and skipped so one closed inbox
// never blocks the rest of the mailbag.
func (h *Handler) HandleRepartir(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if !h.gate.IsAuthorized(dutil.InvokerID(i), guildID) {
		_ = dutil.RespondEphemeral(s, i, "❌ No tienes permisos para usar este comando.")
		return
	}

	if err := dutil.DeferEphemeral(s, i); err != nil {
		log.Printf("letters: defer repartir: %v", err)
		return
	}

	rows, err := h.store.Undelivered(guildID)
	if err != nil {
		log.Printf("letters: query undelivered: %v", err)
		_ = dutil.FollowupEphemeral(s, i, "❌ No se pudieron consultar las cartas pendientes.")
		return
	}
	if len(rows) == 0 {
		_ = dutil.FollowupEphemeral(s, i, "📭 No hay cartas pendientes de repartir.")
		return
	}

	delivered, failed := 0, 0
	for _, letter := range rows {
		if err := h.deliver(s, letter); err != nil {
			log.Printf("letters: deliver %d to %d: %v", letter.ID, letter.RecipientID, err)
			failed++
			continue
		}
		if err := h.store.MarkDelivered(letter.ID, time.Now()); err != nil {
			log.Printf("letters: mark delivered %d: %v", letter.ID, err)
		}
		delivered++
	}

	summary := fmt.Sprintf("💌 **%d carta(s) repartidas.**", delivered)
	if failed > 0 {
		summary += fmt.Sprintf(" ⚠️ %d no se pudieron entregar.", failed)
	}
	if err := dutil.FollowupEphemeral(s, i, summary); err != nil {
		log.Printf("letters: confirm repartir: %v", err)
	}
}

func (h *Handler) deliver(s *discordgo.Session, letter types.Letter) error {
	dm, err := s.UserChannelCreate(dutil.FormatID(letter.RecipientID))
	if err != nil {
		return fmt.Errorf("open DM: %w", err)
	}
	if _, err := s.ChannelMessageSendEmbed(dm.ID, deliveryEmbed(letter)); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}

// deliveryEmbed is what the recipient reads. An anonymous letter never
// carries the sender's name.
func deliveryEmbed(letter types.Letter) *discordgo.MessageEmbed {
	from := letter.SenderName
	if letter.Anonymous {
		from = "Anónimo 🕵️"
	}
	return &discordgo.MessageEmbed{
		Title:       "💌 Has recibido una carta",
		Description: letter.Body,
		Color:       0xFF69B4,
		Footer:      &discordgo.MessageEmbedFooter{Text: "De: " + from},
		Timestamp:   letter.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func sentLettersEmbed(rows []types.Letter) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(rows))
	for n, letter := range rows {
		kind := "Firmada ✍️"
		if letter.Anonymous {
			kind = "Anónima 🕵️"
		}
		state := "pendiente"
		if letter.Delivered {
			state = "entregada"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Carta %d — para %s", n+1, letter.RecipientName),
			Value: fmt.Sprintf("%s · %s\n%s", kind, state, excerpt(letter.Body, 80)),
		})
	}
	return &discordgo.MessageEmbed{
		Title:       "📬 Tus Cartas",
		Description: fmt.Sprintf("Has usado %d de %d cartas.", len(rows), maxPerSender),
		Color:       0xE67E22,
		Fields:      fields,
	}
}

func excerpt(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "…"
}

// notifyRecipients sends the log embed to every configured recipient id,
// trying the id as a channel first and as a user DM second. Failures skip
// to the next recipient.
func (h *Handler) notifyRecipients(s *discordgo.Session, letter types.Letter) {
	if len(h.community.LogRecipients) == 0 {
		return
	}

	kind := "Firmada ✍️"
	if letter.Anonymous {
		kind = "Anónima 🕵️"
	}
	embed := &discordgo.MessageEmbed{
		Title: "Nueva Carta Registrada 📨",
		Color: 0xE67E22,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "De", Value: fmt.Sprintf("%s (`%d`)", letter.SenderName, letter.SenderID), Inline: true},
			{Name: "Para", Value: fmt.Sprintf("%s (<@%d>)", letter.RecipientName, letter.RecipientID), Inline: true},
			{Name: "Tipo", Value: kind, Inline: true},
			{Name: "Mensaje", Value: letter.Body},
			{Name: "Servidor", Value: fmt.Sprintf("%s (%d)", h.community.Name, letter.GuildID)},
		},
		Timestamp: letter.CreatedAt.UTC().Format(time.RFC3339),
	}

	for _, recipientID := range h.community.LogRecipients {
		id := dutil.FormatID(recipientID)
		if _, err := s.ChannelMessageSendEmbed(id, embed); err == nil {
			continue
		}
		dm, err := s.UserChannelCreate(id)
		if err != nil {
			log.Printf("letters: log recipient %d unreachable: %v", recipientID, err)
			continue
		}
		if _, err := s.ChannelMessageSendEmbed(dm.ID, embed); err != nil {
			log.Printf("letters: log DM to %d: %v", recipientID, err)
		}
	}
}
