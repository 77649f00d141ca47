// Package notify delivers run digests over email and Telegram. Both
// channels are optional; a run with nothing new sends nothing.
package notify

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	mail "gopkg.in/mail.v2"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

// Digest summarizes one pipeline run for humans.
type Digest struct {
	RunID    string
	When     time.Time
	Added    []*types.Listing
	Closed   []string
	Archived []string
}

// Empty reports whether the digest carries anything worth sending.
func (d Digest) Empty() bool {
	return len(d.Added) == 0 && len(d.Closed) == 0 && len(d.Archived) == 0
}

// Subject is the one-line summary used for email subjects and log lines.
func (d Digest) Subject() string {
	return fmt.Sprintf("interntrack: %d new, %d closed, %d archived", len(d.Added), len(d.Closed), len(d.Archived))
}

// Body renders the digest as plain text, shared by both channels.
func (d Digest) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished at %s\n\n", d.RunID, d.When.UTC().Format(time.RFC3339))

	if len(d.Added) > 0 {
		fmt.Fprintf(&b, "New listings (%d):\n", len(d.Added))
		for _, l := range d.Added {
			loc := "location unknown"
			if len(l.Locations) > 0 {
				loc = strings.Join(l.Locations, "; ")
			}
			fmt.Fprintf(&b, "  - %s: %s (%s)\n    %s\n", l.Company, l.Role, loc, l.ApplyURL)
		}
		b.WriteString("\n")
	}
	if len(d.Closed) > 0 {
		fmt.Fprintf(&b, "Closed after repeated dead-link checks: %d\n", len(d.Closed))
	}
	if len(d.Archived) > 0 {
		fmt.Fprintf(&b, "Archived: %d\n", len(d.Archived))
	}
	return b.String()
}

// Sender delivers a digest over one channel.
type Sender interface {
	Send(d Digest) error
}

// EmailSender delivers digests over SMTP.
type EmailSender struct {
	cfg config.Email
}

func NewEmailSender(cfg config.Email) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Send(d Digest) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", d.Subject())
	m.SetBody("text/plain", d.Body())

	dialer := mail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}
	return nil
}

// TelegramSender delivers digests to a Telegram chat.
type TelegramSender struct {
	cfg config.Telegram
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(cfg config.Telegram) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{cfg: cfg, bot: bot}, nil
}

func (s *TelegramSender) Send(d Digest) error {
	msg := tgbotapi.NewMessage(s.cfg.ChatID, d.Body())
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram digest: %w", err)
	}
	return nil
}

// Broadcast sends the digest over every configured channel. Channel
// failures are logged and do not affect each other or the run.
func Broadcast(senders []Sender, d Digest) {
	if d.Empty() {
		log.Printf("[notify] nothing to report, skipping digest")
		return
	}
	for _, s := range senders {
		if err := s.Send(d); err != nil {
			log.Printf("[notify] %v", err)
		}
	}
}

// Senders builds the channel list from config.
func Senders(cfg *config.Config) []Sender {
	var out []Sender
	if cfg.Email.Enabled() {
		out = append(out, NewEmailSender(cfg.Email))
	}
	if cfg.Telegram.Enabled() {
		tg, err := NewTelegramSender(cfg.Telegram)
		if err != nil {
			log.Printf("[notify] telegram disabled: %v", err)
		} else {
			out = append(out, tg)
		}
	}
	return out
}
