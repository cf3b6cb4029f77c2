package config

import (
	"reflect"
	"testing"
)

func setCommunityEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COMMUNITY_PREFIXES", "ZEROP,IGLESIA")
	t.Setenv("ZEROP_GUILD_ID", "1237573087013109811")
	t.Setenv("ZEROP_NAME", "Comunidad Zero")
	t.Setenv("ZEROP_TOKEN", "token-a")
	t.Setenv("ZEROP_STATUS_CHANNEL_ID", "1473927006520344626")
	t.Setenv("ZEROP_ADMIN_USER_ID", "111, 222,bad,333")
	t.Setenv("ZEROP_TICKET_SUPPORT_ROLE_ID", "900,901")
	t.Setenv("ZEROP_ENABLE_LETTERS", "off")
	t.Setenv("IGLESIA_GUILD_ID", "1091109766237007992")
	t.Setenv("IGLESIA_LOG_TOKEN", "log-token-b")
	t.Setenv("IGLESIA_ENABLE_TICKETS", "YES")
	t.Setenv("ADMIN_USER_ID", "777")
}

func TestResolveCommunities(t *testing.T) {
	setCommunityEnv(t)

	cfg := Resolve()
	if len(cfg.Communities) != 2 {
		t.Fatalf("expected 2 communities, got %d", len(cfg.Communities))
	}

	zero := cfg.Communities[1237573087013109811]
	if zero.Name != "Comunidad Zero" || zero.Token != "token-a" {
		t.Fatalf("unexpected zero config: %+v", zero)
	}
	if zero.StatusChannelID != 1473927006520344626 {
		t.Fatalf("status channel = %d", zero.StatusChannelID)
	}
	if !reflect.DeepEqual(zero.AdminIDs, []uint64{111, 222, 333}) {
		t.Fatalf("admin ids = %v; non-numeric entries must be dropped", zero.AdminIDs)
	}
	if !reflect.DeepEqual(zero.TicketSupportRoleIDs, []uint64{900, 901}) {
		t.Fatalf("support roles = %v", zero.TicketSupportRoleIDs)
	}
	if zero.EnableLetters {
		t.Fatal("ZEROP_ENABLE_LETTERS=off should disable letters")
	}
	if !zero.EnableTickets || !zero.EnableBirthdays {
		t.Fatal("unset feature flags default to enabled")
	}

	iglesia := cfg.Communities[1091109766237007992]
	if iglesia.Token != "" {
		t.Fatal("missing token must stay empty, not error")
	}
	if iglesia.LogToken != "log-token-b" {
		t.Fatalf("log token = %q", iglesia.LogToken)
	}
	if iglesia.Name != "Guild 1091109766237007992" {
		t.Fatalf("default name = %q", iglesia.Name)
	}
	if !iglesia.EnableTickets {
		t.Fatal("YES is truthy")
	}

	if !reflect.DeepEqual(cfg.GlobalAdminIDs, []uint64{777}) {
		t.Fatalf("global admins = %v", cfg.GlobalAdminIDs)
	}
}

func TestResolveIdempotent(t *testing.T) {
	setCommunityEnv(t)

	first := Resolve()
	second := Resolve()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Resolve must be idempotent for an unchanged environment")
	}
}

func TestResolveSkipsBadGuildID(t *testing.T) {
	t.Setenv("COMMUNITY_PREFIXES", "GOOD,BAD,ABSENT")
	t.Setenv("GOOD_GUILD_ID", "42")
	t.Setenv("BAD_GUILD_ID", "not-a-number")

	cfg := Resolve()
	if len(cfg.Communities) != 1 {
		t.Fatalf("expected only the parseable community, got %d", len(cfg.Communities))
	}
	if _, ok := cfg.Communities[42]; !ok {
		t.Fatal("community 42 missing")
	}
}

func TestStatusChannelsOmitsUnconfigured(t *testing.T) {
	t.Setenv("COMMUNITY_PREFIXES", "A,B")
	t.Setenv("A_GUILD_ID", "1")
	t.Setenv("A_STATUS_CHANNEL_ID", "10")
	t.Setenv("B_GUILD_ID", "2")

	channels := Resolve().StatusChannels()
	if !reflect.DeepEqual(channels, map[uint64]uint64{1: 10}) {
		t.Fatalf("channels = %v", channels)
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"On", true},
		{"false", false},
		{"0", false},
		{"enabled", false},
	}
	for _, tt := range tests {
		if got := parseFlag(tt.raw); got != tt.want {
			t.Errorf("parseFlag(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
