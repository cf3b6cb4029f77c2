package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/zero-community/multibot/src/multibot/status"
	dutil "github.com/zero-community/multibot/src/shared/discord"
)

// kindLabels name each status kind in the confirmation message.
var kindLabels = map[status.Kind]string{
	status.KindMaintenance: "Mantenimiento 🚧",
	status.KindActive:      "Activo ✅",
	status.KindShutdown:    "Apagado 💤",
	status.KindCustom:      "Personalizado 📢",
}

// Handler serves the /estado command: gate the invoker, then broadcast the
// requested status over the whole fleet.
type Handler struct {
	gate       *Gate
	controller *status.Controller
}

func NewHandler(gate *Gate, controller *status.Controller) *Handler {
	return &Handler{gate: gate, controller: controller}
}

func (h *Handler) HandleEstado(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := dutil.InvokerID(i)
	guildID := dutil.GuildID(i)

	if !h.gate.IsAuthorized(userID, guildID) {
		if err := dutil.RespondEphemeral(s, i, "❌ No tienes permisos para usar este comando."); err != nil {
			log.Printf("admin: respond denial: %v", err)
		}
		return
	}

	opts := dutil.Options(i)
	req := status.Request{Kind: status.Kind(opts["tipo"].StringValue())}
	if opt, ok := opts["mensaje"]; ok {
		req.Body = opt.StringValue()
	}
	if opt, ok := opts["texto_actividad"]; ok {
		req.ActivityText = opt.StringValue()
	}

	// The fan-out edits or sends a message per community; acknowledge
	// first so the interaction does not time out.
	if err := dutil.DeferEphemeral(s, i); err != nil {
		log.Printf("admin: defer estado: %v", err)
		return
	}

	h.controller.Broadcast(context.Background(), req)

	label := kindLabels[req.Kind]
	if label == "" {
		label = string(req.Kind)
	}
	msg := fmt.Sprintf("✅ Estado global actualizado a **%s** en todos los bots.", label)
	if err := dutil.FollowupEphemeral(s, i, msg); err != nil {
		log.Printf("admin: confirm estado: %v", err)
	}
}
