package status

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/zero-community/multibot/src/shared/data"
)

// Kind is the closed set of broadcast categories.
type Kind string

const (
	KindMaintenance Kind = "maintenance"
	KindActive      Kind = "active"
	KindShutdown    Kind = "shutdown"
	KindCustom      Kind = "custom"
)

// Request describes one status broadcast. ActivityText only matters for
// KindCustom; Body overrides the default announcement description.
type Request struct {
	Kind         Kind
	ActivityText string
	Body         string
}

// defaultCustomActivity backs a custom broadcast whose activity text was
// left empty.
const defaultCustomActivity = "Comunidad Zero"

type appearance struct {
	Presence discordgo.Status
	Activity string
	Color    int
	Title    string
}

// appearanceFor maps a request to its fixed presence/embed tuple.
func appearanceFor(req Request) appearance {
	switch req.Kind {
	case KindMaintenance:
		return appearance{discordgo.StatusDoNotDisturb, "🚧 Mantenimiento", 0xE67E22, "🚧 MANTENIMIENTO 🚧"}
	case KindShutdown:
		return appearance{discordgo.StatusInvisible, "💤 Apagado", 0xE74C3C, "🔴 APAGADO 🔴"}
	case KindActive:
		return appearance{discordgo.StatusOnline, "✅ Activo", 0x2ECC71, "✅ EN LÍNEA ✅"}
	default:
		activity := req.ActivityText
		if activity == "" {
			activity = defaultCustomActivity
		}
		return appearance{discordgo.StatusOnline, activity, 0x3498DB, "📢 ACTUALIZACIÓN"}
	}
}

// priorState classifies the announcement message recorded for a community.
type priorState int

const (
	priorNone  priorState = iota // nothing recorded
	priorValid                   // recorded message edited in place
	priorStale                   // recorded message could not be edited
)

// shouldSendNew is the edit-or-send decision table. A shutdown broadcast
// only updates an existing announcement; it never creates one, so repeated
// shutdowns do not pile up farewell messages.
func shouldSendNew(state priorState, kind Kind) bool {
	type row struct {
		state    priorState
		shutdown bool
	}
	table := map[row]bool{
		{priorNone, false}:  true,
		{priorNone, true}:   false,
		{priorValid, false}: false,
		{priorValid, true}:  false,
		{priorStale, false}: true,
		{priorStale, true}:  false,
	}
	return table[row{state, kind == KindShutdown}]
}

type registeredBot struct {
	guildID uint64
	name    string
	conn    Connection
}

// Controller fans a status change out over every registered bot: presence
// first, then the per-community announcement message, persisting message
// ids through the Store. One instance per process, constructed at startup.
type Controller struct {
	store    *Store
	channels map[uint64]uint64 // guild id → announcement channel id
	rdb      *redis.Client

	mu       sync.Mutex
	bots     []registeredBot
	lastKind Kind
}

func NewController(store *Store, channels map[uint64]uint64, rdb *redis.Client) *Controller {
	return &Controller{store: store, channels: channels, rdb: rdb}
}

// Register adds a connection to the fan-out set. Call once per connection;
// bots are never removed for the life of the process.
func (c *Controller) Register(conn Connection, guildID uint64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bots = append(c.bots, registeredBot{guildID: guildID, name: name, conn: conn})
	log.Printf("status: registered %s (guild %d)", name, guildID)
}

// Broadcast applies the requested status to every registered bot. Failures
// are isolated per bot: logged, never retried, never propagated.
func (c *Controller) Broadcast(ctx context.Context, req Request) {
	look := appearanceFor(req)

	c.mu.Lock()
	bots := append([]registeredBot(nil), c.bots...)
	c.lastKind = req.Kind
	c.mu.Unlock()

	for _, bot := range bots {
		if err := c.apply(ctx, bot, req, look); err != nil {
			log.Printf("status: %s: %v", bot.name, err)
		}
	}
}

func (c *Controller) apply(ctx context.Context, bot registeredBot, req Request, look appearance) error {
	if bot.conn.Ready() {
		if err := bot.conn.SetPresence(look.Presence, look.Activity); err != nil {
			return fmt.Errorf("set presence: %w", err)
		}
		log.Printf("status: %s presence set to %s", bot.name, req.Kind)
	}

	channelID := c.channels[bot.guildID]
	if channelID == 0 || !bot.conn.Ready() {
		return nil
	}
	if !bot.conn.HasChannel(channelID) {
		log.Printf("status: %s announcement channel %d not found", bot.name, channelID)
		return nil
	}

	embed := announcementEmbed(req, look, bot.conn.Username())

	state := priorNone
	messageID, ok := c.store.Get(bot.guildID)
	if ok {
		switch err := bot.conn.EditMessage(channelID, messageID, embed); {
		case err == nil:
			state = priorValid
			log.Printf("status: %s edited announcement %d", bot.name, messageID)
		case IsNotFound(err):
			state = priorStale
			log.Printf("status: %s previous announcement %d gone; will send new", bot.name, messageID)
		default:
			state = priorStale
			log.Printf("status: %s edit announcement %d: %v", bot.name, messageID, err)
		}
	}

	if shouldSendNew(state, req.Kind) {
		newID, err := bot.conn.SendMessage(channelID, embed)
		if err != nil {
			return fmt.Errorf("send announcement: %w", err)
		}
		messageID = newID
		state = priorValid
		log.Printf("status: %s sent new announcement %d", bot.name, messageID)
	}

	if state != priorValid {
		return nil
	}

	if err := c.store.Put(bot.guildID, messageID); err != nil {
		log.Printf("status: %s persist announcement id: %v", bot.name, err)
	}
	c.publish(ctx, bot, req, messageID)
	return nil
}

func announcementEmbed(req Request, look appearance, username string) *discordgo.MessageEmbed {
	body := req.Body
	if body == "" {
		body = "Estado: " + look.Activity
	}
	return &discordgo.MessageEmbed{
		Title:       look.Title,
		Description: body,
		Color:       look.Color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Actualización Global • " + username,
		},
	}
}

// publish mirrors applied status changes onto the event stream for external
// consumers. Best effort.
func (c *Controller) publish(ctx context.Context, bot registeredBot, req Request, messageID uint64) {
	if c.rdb == nil {
		return
	}
	_ = data.PublishEvent(ctx, c.rdb, map[string]interface{}{
		"guild":      bot.guildID,
		"bot":        bot.name,
		"kind":       string(req.Kind),
		"message_id": messageID,
		"time":       time.Now().Unix(),
	})
}

// BotStatus is one row of the ops snapshot.
type BotStatus struct {
	GuildID       uint64 `json:"guild_id"`
	Name          string `json:"name"`
	Ready         bool   `json:"ready"`
	LastMessageID uint64 `json:"last_message_id,omitempty"`
}

// Snapshot reports the controller's view of the fleet.
type Snapshot struct {
	LastKind Kind        `json:"last_kind,omitempty"`
	Bots     []BotStatus `json:"bots"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	bots := append([]registeredBot(nil), c.bots...)
	lastKind := c.lastKind
	c.mu.Unlock()

	snap := Snapshot{LastKind: lastKind, Bots: make([]BotStatus, 0, len(bots))}
	for _, bot := range bots {
		messageID, _ := c.store.Get(bot.guildID)
		snap.Bots = append(snap.Bots, BotStatus{
			GuildID:       bot.guildID,
			Name:          bot.name,
			Ready:         bot.conn.Ready(),
			LastMessageID: messageID,
		})
	}
	return snap
}
