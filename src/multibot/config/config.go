package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Community is the resolved configuration for one guild. Built once at
// process start from the environment and immutable afterwards.
type Community struct {
	GuildID              uint64
	Name                 string
	Token                string
	LogToken             string
	StatusChannelID      uint64
	BirthdayChannelID    uint64
	TicketSupportRoleIDs []uint64
	TicketLogChannelID   uint64
	AdminIDs             []uint64
	LogRecipients        []uint64
	EnableLetters        bool
	EnableTickets        bool
	EnableBirthdays      bool
}

type Config struct {
	Communities    map[uint64]Community
	GlobalAdminIDs []uint64
	MySQLDSN       string
	RedisURL       string
	OpsAddr        string
	StatusFile     string
}

// defaultPrefixes names the two historical deployments. Additional
// communities only need their prefix added to COMMUNITY_PREFIXES.
const defaultPrefixes = "ZEROP,IGLESIA"

// Resolve reads the per-community environment surface. Communities whose
// guild id is missing or unparseable are skipped, never fatal. Calling it
// twice against an unchanged environment yields the same result.
func Resolve() Config {
	cfg := Config{
		Communities:    make(map[uint64]Community),
		GlobalAdminIDs: parseIDList(os.Getenv("ADMIN_USER_ID")),
		MySQLDSN:       getenv("MYSQL_DSN", "multibot:multibot@tcp(127.0.0.1:3306)/multibot"),
		RedisURL:       os.Getenv("REDIS_URL"),
		OpsAddr:        os.Getenv("OPS_ADDR"),
		StatusFile:     getenv("STATUS_FILE", "status_config.json"),
	}

	prefixes := strings.Split(getenv("COMMUNITY_PREFIXES", defaultPrefixes), ",")
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}

		guildID := parseID(os.Getenv(prefix + "_GUILD_ID"))
		if guildID == 0 {
			log.Printf("config: %s_GUILD_ID missing or not numeric; skipping community", prefix)
			continue
		}
		if _, exists := cfg.Communities[guildID]; exists {
			log.Printf("config: duplicate guild id %d for prefix %s; skipping", guildID, prefix)
			continue
		}

		cfg.Communities[guildID] = Community{
			GuildID:              guildID,
			Name:                 getenv(prefix+"_NAME", fmt.Sprintf("Guild %d", guildID)),
			Token:                os.Getenv(prefix + "_TOKEN"),
			LogToken:             os.Getenv(prefix + "_LOG_TOKEN"),
			StatusChannelID:      parseID(os.Getenv(prefix + "_STATUS_CHANNEL_ID")),
			BirthdayChannelID:    parseID(os.Getenv(prefix + "_BIRTHDAY_CHANNEL_ID")),
			TicketSupportRoleIDs: parseIDList(os.Getenv(prefix + "_TICKET_SUPPORT_ROLE_ID")),
			TicketLogChannelID:   parseID(os.Getenv(prefix + "_TICKET_LOG_CHANNEL_ID")),
			AdminIDs:             parseIDList(os.Getenv(prefix + "_ADMIN_USER_ID")),
			LogRecipients:        parseIDList(os.Getenv(prefix + "_LOG_RECIPIENTS")),
			EnableLetters:        parseFlag(os.Getenv(prefix + "_ENABLE_LETTERS")),
			EnableTickets:        parseFlag(os.Getenv(prefix + "_ENABLE_TICKETS")),
			EnableBirthdays:      parseFlag(os.Getenv(prefix + "_ENABLE_BIRTHDAYS")),
		}
	}

	return cfg
}

// StatusChannels maps each community to its announcement channel. Entries
// without a configured channel are omitted.
func (c Config) StatusChannels() map[uint64]uint64 {
	channels := make(map[uint64]uint64)
	for id, community := range c.Communities {
		if community.StatusChannelID != 0 {
			channels[id] = community.StatusChannelID
		}
	}
	return channels
}

// AdminsByGuild returns the per-community admin id lists.
func (c Config) AdminsByGuild() map[uint64][]uint64 {
	admins := make(map[uint64][]uint64)
	for id, community := range c.Communities {
		admins[id] = community.AdminIDs
	}
	return admins
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseID(raw string) uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// parseIDList splits a comma-separated id list, dropping entries that are
// not unsigned integers.
func parseIDList(raw string) []uint64 {
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		if id := parseID(part); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseFlag interprets feature toggles. Unset means enabled.
func parseFlag(raw string) bool {
	if raw == "" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
