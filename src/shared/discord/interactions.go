package discord

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// RespondEphemeral answers an interaction with a message only the invoker
// sees.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondEphemeralEmbed answers an interaction with an embed only the
// invoker sees.
func RespondEphemeralEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// DeferEphemeral acknowledges an interaction so slow work can follow up
// later.
func DeferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// FollowupEphemeral completes a deferred interaction.
func FollowupEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

// Options flattens a command's options by name.
func Options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

// InvokerID returns the invoking user's id regardless of guild/DM context.
func InvokerID(i *discordgo.InteractionCreate) uint64 {
	if i.Member != nil && i.Member.User != nil {
		return ParseID(i.Member.User.ID)
	}
	if i.User != nil {
		return ParseID(i.User.ID)
	}
	return 0
}

// InvokerName returns the invoking user's username.
func InvokerName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// GuildID returns the interaction's guild id, zero outside a guild.
func GuildID(i *discordgo.InteractionCreate) uint64 {
	return ParseID(i.GuildID)
}

// ParseID converts a snowflake string; zero when unparseable.
func ParseID(raw string) uint64 {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// FormatID converts an integer snowflake back to its wire form.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
