package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"

	"github.com/bwmarrin/discordgo"
)

// DiscordSession is the part of *discordgo.Session the sink uses.
type DiscordSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var ErrDiscordAccountsMissing = errors.New("discord account lookup is not configured")

// DiscordSink sends each notification as a direct message embed to the
// user's linked Discord account. Users without a link get no DM. Warnings and
// errors are mirrored to the staff channel when one is configured.
type DiscordSink struct {
	Session        DiscordSession
	Accounts       ports.DiscordAccounts
	StaffChannelID string
}

// NewDiscordSession opens a bot session for token.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return session, nil
}

func (d DiscordSink) Notify(ctx context.Context, userID string, message string, severity entities.Severity) error {
	embed := &discordgo.MessageEmbed{
		Title:       titleFor(severity),
		Description: message,
		Color:       colorFor(severity),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Submission review",
		},
	}

	if d.Accounts == nil {
		return ErrDiscordAccountsMissing
	}
	discordID, linked, err := d.Accounts.DiscordID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve discord account for %s: %w", userID, err)
	}
	if linked {
		channel, err := d.Session.UserChannelCreate(discordID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("open dm channel for %s: %w", userID, err)
		}
		if _, err := d.Session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send dm to %s: %w", userID, err)
		}
	}

	staffChannel := strings.TrimSpace(d.StaffChannelID)
	if staffChannel == "" || (severity != entities.SeverityWarning && severity != entities.SeverityError) {
		return nil
	}
	mention := userID
	if linked {
		mention = "<@" + discordID + ">"
	}
	staffEmbed := *embed
	staffEmbed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User", Value: mention, Inline: true},
	}
	if _, err := d.Session.ChannelMessageSendEmbed(staffChannel, &staffEmbed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send staff notice: %w", err)
	}
	return nil
}

func titleFor(severity entities.Severity) string {
	switch severity {
	case entities.SeveritySuccess:
		return "Submission accepted"
	case entities.SeverityError:
		return "Submission denied"
	case entities.SeverityWarning:
		return "Claim released"
	default:
		return "Submission update"
	}
}

func colorFor(severity entities.Severity) int {
	switch severity {
	case entities.SeveritySuccess:
		return 0x2ECC71
	case entities.SeverityError:
		return 0xFF0000
	case entities.SeverityWarning:
		return 0xF1C40F
	default:
		return 0x3498DB
	}
}
