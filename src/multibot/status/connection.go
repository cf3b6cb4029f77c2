package status

import (
	"errors"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Connection is what the controller needs from one community's gateway
// session. Identities are snowflakes as integers; the adapter converts at
// the discordgo boundary.
type Connection interface {
	Ready() bool
	Username() string
	SetPresence(status discordgo.Status, activity string) error
	HasChannel(channelID uint64) bool
	// EditMessage replaces the embed of an existing message. A vanished
	// message reports as not-found (see IsNotFound).
	EditMessage(channelID, messageID uint64, embed *discordgo.MessageEmbed) error
	SendMessage(channelID uint64, embed *discordgo.MessageEmbed) (uint64, error)
}

// Session adapts a discordgo session to the Connection boundary.
type Session struct {
	dg *discordgo.Session
}

func NewSession(dg *discordgo.Session) *Session {
	return &Session{dg: dg}
}

func (s *Session) Ready() bool {
	return s.dg.DataReady
}

func (s *Session) Username() string {
	if s.dg.State != nil && s.dg.State.User != nil {
		return s.dg.State.User.Username
	}
	return ""
}

func (s *Session) SetPresence(status discordgo.Status, activity string) error {
	return s.dg.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: string(status),
		Activities: []*discordgo.Activity{
			{Name: activity, Type: discordgo.ActivityTypeGame},
		},
	})
}

func (s *Session) HasChannel(channelID uint64) bool {
	id := strconv.FormatUint(channelID, 10)
	if _, err := s.dg.State.Channel(id); err == nil {
		return true
	}
	_, err := s.dg.Channel(id)
	return err == nil
}

func (s *Session) EditMessage(channelID, messageID uint64, embed *discordgo.MessageEmbed) error {
	chID := strconv.FormatUint(channelID, 10)
	msgID := strconv.FormatUint(messageID, 10)
	// Fetch first so a vanished message surfaces as not-found before any
	// edit is attempted.
	if _, err := s.dg.ChannelMessage(chID, msgID); err != nil {
		return err
	}
	_, err := s.dg.ChannelMessageEditEmbed(chID, msgID, embed)
	return err
}

func (s *Session) SendMessage(channelID uint64, embed *discordgo.MessageEmbed) (uint64, error) {
	msg, err := s.dg.ChannelMessageSendEmbed(strconv.FormatUint(channelID, 10), embed)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(msg.ID, 10, 64)
}

// IsNotFound reports whether err is the platform's unknown-message or
// unknown-channel answer.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == 404
}
