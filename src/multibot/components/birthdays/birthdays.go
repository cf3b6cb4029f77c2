package birthdays

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zero-community/multibot/src/multibot/config"
	"github.com/zero-community/multibot/src/multibot/types"
	dutil "github.com/zero-community/multibot/src/shared/discord"
)

// greetingSchedule fires the daily birthday check at 09:00 local time.
const greetingSchedule = "0 9 * * *"

// Service owns birthday registration commands and the daily greeting job
// for one community.
type Service struct {
	db        *gorm.DB
	community config.Community
	cron      *cron.Cron
}

func NewService(db *gorm.DB, community config.Community) *Service {
	return &Service{db: db, community: community}
}

// Start schedules the daily greeting. No-op when the community has no
// birthday channel.
func (b *Service) Start(s *discordgo.Session) {
	if b.community.BirthdayChannelID == 0 || b.cron != nil {
		return
	}
	b.cron = cron.New()
	if _, err := b.cron.AddFunc(greetingSchedule, func() { b.announce(s, time.Now()) }); err != nil {
		log.Printf("birthdays: schedule greeting: %v", err)
		return
	}
	b.cron.Start()
}

func (b *Service) Stop() {
	if b.cron != nil {
		b.cron.Stop()
	}
}

// announce greets every member whose birthday is today.
func (b *Service) announce(s *discordgo.Session, now time.Time) {
	var rows []types.Birthday
	err := b.db.Where("guild_id = ? AND day = ? AND month = ?",
		b.community.GuildID, now.Day(), int(now.Month())).Find(&rows).Error
	if err != nil {
		log.Printf("birthdays: query today: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	mentions := make([]string, 0, len(rows))
	for _, row := range rows {
		mentions = append(mentions, fmt.Sprintf("<@%d>", row.UserID))
	}
	msg := fmt.Sprintf("🎉 **¡HOY ES UN DÍA ESPECIAL!** 🎉\n\nDeseadle un muy feliz cumpleaños a %s 🎂🥳\n¡Que paséis un día genial!",
		strings.Join(mentions, ", "))
	if _, err := s.ChannelMessageSend(dutil.FormatID(b.community.BirthdayChannelID), msg); err != nil {
		log.Printf("birthdays: greeting for guild %d: %v", b.community.GuildID, err)
	}
}

func (b *Service) HandleCumple(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if guildID == 0 {
		_ = dutil.RespondEphemeral(s, i, "❌ Error: No se pudo identificar el servidor.")
		return
	}

	opts := dutil.Options(i)
	day := int(opts["dia"].IntValue())
	month := int(opts["mes"].IntValue())
	year := 0
	if opt, ok := opts["anio"]; ok {
		year = int(opt.IntValue())
	}

	if !validDate(day, month) {
		_ = dutil.RespondEphemeral(s, i, fmt.Sprintf("❌ Fecha inválida: %d/%d", day, month))
		return
	}

	row := types.Birthday{GuildID: guildID, UserID: dutil.InvokerID(i), Day: day, Month: month, Year: year}
	if err := b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		log.Printf("birthdays: save for user %d: %v", row.UserID, err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudo guardar tu cumpleaños.")
		return
	}
	_ = dutil.RespondEphemeral(s, i,
		fmt.Sprintf("✅ **¡Guardado!** Tu cumpleaños se ha registrado para el **%d/%d**.", day, month))
}

func (b *Service) HandleProximos(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := dutil.GuildID(i)
	if guildID == 0 {
		_ = dutil.RespondEphemeral(s, i, "❌ Error: No se pudo identificar el servidor.")
		return
	}

	var rows []types.Birthday
	if err := b.db.Where("guild_id = ?", guildID).Find(&rows).Error; err != nil {
		log.Printf("birthdays: query guild %d: %v", guildID, err)
		_ = dutil.RespondEphemeral(s, i, "❌ No se pudieron consultar los cumpleaños.")
		return
	}
	if len(rows) == 0 {
		_ = dutil.RespondEphemeral(s, i, "📭 No hay cumpleaños registrados.")
		return
	}

	upcoming := upcomingBirthdays(rows, time.Now(), 5)
	var desc strings.Builder
	for _, entry := range upcoming {
		fmt.Fprintf(&desc, "• <@%d> - %d/%d (%s)\n",
			entry.UserID, entry.Next.Day(), int(entry.Next.Month()), daysLabel(entry.Days))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📅 Próximos Cumpleaños",
		Description: desc.String(),
		Color:       0xF1C40F,
	}
	if embed.Description == "" {
		embed.Description = "Nadie cumple años pronto..."
	}
	if err := dutil.RespondEphemeralEmbed(s, i, embed); err != nil {
		log.Printf("birthdays: respond proximos: %v", err)
	}
}

func daysLabel(days int) string {
	switch days {
	case 0:
		return "**¡ES HOY!** 🎉"
	case 1:
		return "Mañana ⏰"
	default:
		return fmt.Sprintf("En %d días", days)
	}
}

// upcomingEntry pairs a member with their next birthday occurrence.
type upcomingEntry struct {
	UserID uint64
	Next   time.Time
	Days   int
}

// upcomingBirthdays computes the next occurrence of each registered date
// and returns the soonest limit entries. Dates that do not exist in the
// candidate year (Feb 29 off leap years) are skipped.
func upcomingBirthdays(rows []types.Birthday, now time.Time, limit int) []upcomingEntry {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var entries []upcomingEntry
	for _, row := range rows {
		next, ok := nextOccurrence(today, row.Day, row.Month)
		if !ok {
			continue
		}
		days := int(next.Sub(today).Hours() / 24)
		entries = append(entries, upcomingEntry{UserID: row.UserID, Next: next, Days: days})
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].Days < entries[b].Days })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// nextOccurrence finds the first date with the given day/month on or after
// today, searching up to four years ahead to cover Feb 29.
func nextOccurrence(today time.Time, day, month int) (time.Time, bool) {
	for year := today.Year(); year <= today.Year()+4; year++ {
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
		if candidate.Day() != day || candidate.Month() != time.Month(month) {
			continue // normalized away: no such date this year
		}
		if !candidate.Before(today) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// validDate accepts day/month pairs that exist in at least one year;
// 29/2 is allowed via leap years.
func validDate(day, month int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	check := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return check.Day() == day && check.Month() == time.Month(month)
}
