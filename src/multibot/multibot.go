package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zero-community/multibot/src/multibot/bot"
	"github.com/zero-community/multibot/src/multibot/components/admin"
	"github.com/zero-community/multibot/src/multibot/config"
	"github.com/zero-community/multibot/src/multibot/ops"
	"github.com/zero-community/multibot/src/multibot/status"
	"github.com/zero-community/multibot/src/shared/data"
)

func main() {
	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	cfg := config.Resolve()
	if len(cfg.Communities) == 0 {
		log.Fatal("main: no communities configured; check the environment")
	}

	db := data.MustMySQL(cfg.MySQLDSN)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = data.MustRedis(cfg.RedisURL)
	}

	store := status.NewStore(cfg.StatusFile)
	controller := status.NewController(store, cfg.StatusChannels(), rdb)
	gate := admin.NewGate(cfg.AdminsByGuild(), cfg.GlobalAdminIDs)
	adminHandler := admin.NewHandler(gate, controller)

	var bots []*bot.Bot
	var logSessions []*discordgo.Session

	for _, community := range cfg.Communities {
		log.Printf("main: preparing bots for %s (%d)", community.Name, community.GuildID)

		if community.Token == "" {
			log.Printf("main: no token for %s; skipping bot startup", community.Name)
		} else {
			b, err := bot.New(bot.Config{Community: community, DB: db, Gate: gate, Admin: adminHandler})
			if err != nil {
				log.Printf("main: build bot for %s: %v", community.Name, err)
			} else {
				controller.Register(status.NewSession(b.Session()), community.GuildID, community.Name)
				if err := b.Start(); err != nil {
					log.Printf("main: start bot for %s: %v", community.Name, err)
				} else {
					bots = append(bots, b)
				}
			}
		}

		if session := startLogSession(community); session != nil {
			logSessions = append(logSessions, session)
		}
	}

	if len(bots) == 0 {
		log.Fatal("main: no bots started; check tokens in the environment")
	}

	if cfg.OpsAddr != "" {
		go func() {
			if err := ops.New(controller).Run(cfg.OpsAddr); err != nil {
				log.Printf("main: ops server: %v", err)
			}
		}()
	}

	log.Printf("main: %d bot(s) running; press CTRL-C to exit", len(bots))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// The shutdown broadcast runs to completion before any session closes;
	// per-bot failures inside it are isolated so one dead channel cannot
	// hang the exit path.
	log.Println("main: shutting down; broadcasting shutdown status")
	controller.Broadcast(context.Background(), status.Request{
		Kind: status.KindShutdown,
		Body: "El sistema se ha apagado o reiniciado.",
	})

	for _, b := range bots {
		b.Stop()
	}
	for _, session := range logSessions {
		if err := session.Close(); err != nil {
			log.Printf("main: close log session: %v", err)
		}
	}
	log.Println("main: stopped")
}

// startLogSession opens the secondary logging-only connection for a
// community, when configured. Reusing the primary token would collide on
// the gateway, so that case is skipped.
func startLogSession(community config.Community) *discordgo.Session {
	if community.LogToken == "" {
		log.Printf("main: no log token for %s; log session omitted", community.Name)
		return nil
	}
	if community.LogToken == community.Token {
		log.Printf("main: log token equals primary token for %s; skipping log session", community.Name)
		return nil
	}

	session, err := discordgo.New("Bot " + community.LogToken)
	if err != nil {
		log.Printf("main: build log session for %s: %v", community.Name, err)
		return nil
	}
	name := community.Name
	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		log.Printf("main: [%s - Logs] connected as %s", name, event.User.Username)
	})
	if err := session.Open(); err != nil {
		log.Printf("main: start log session for %s: %v", community.Name, err)
		return nil
	}
	return session
}
