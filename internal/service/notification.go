package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"

	"gopkg.in/telebot.v3"
)

// Notifier broadcasts settlement and match results to a public Telegram
// channel. Bettors are identified by wallet address, so there are no per-user
// direct messages; everything goes to the channel.
type Notifier struct {
	bot       *telebot.Bot
	mu        sync.Mutex
	channelID string
}

// NewNotifier creates a notifier from a bot token and channel id.
func NewNotifier(botToken, channelID string) (*Notifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token not set")
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token: botToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Notifier{
		bot:       b,
		channelID: channelID,
	}, nil
}

// GetBot returns the underlying telebot instance (for bot commands)
func (n *Notifier) GetBot() *telebot.Bot {
	return n.bot
}

// formatAmount formats a token amount
func formatAmount(amount uint64) string {
	return fmt.Sprintf("%d LBT", amount)
}

// shortAddress shortens a wallet address for display
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// NotifySettlement broadcasts a settled betslip to the channel.
func (n *Notifier) NotifySettlement(slip *storage.Betslip, payout, remainder uint64) {
	if n.channelID == "" {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var message string
	if payout > 0 {
		message = fmt.Sprintf("🏆 *Betslip Settled*\n\nBettor: %s\nType: %s \\(%d legs\\)\nStake: %s\nPayout: *%s*",
			escapeMarkdown(shortAddress(slip.Bettor)),
			slip.BetType,
			len(slip.Legs),
			escapeMarkdown(formatAmount(slip.TotalStake)),
			escapeMarkdown(formatAmount(payout)))
		if remainder > 0 {
			message += fmt.Sprintf("\nRefund: %s", escapeMarkdown(formatAmount(remainder)))
		}
	} else {
		message = fmt.Sprintf("📉 *Betslip Settled*\n\nBettor: %s\nType: %s \\(%d legs\\)\nStake: %s\nNo winning legs\\.",
			escapeMarkdown(shortAddress(slip.Bettor)),
			slip.BetType,
			len(slip.Legs),
			escapeMarkdown(formatAmount(slip.TotalStake)))
	}

	recipient := n.getChannelRecipient()
	_, err := n.bot.Send(recipient, message, &telebot.SendOptions{
		ParseMode: telebot.ModeMarkdown,
	})
	if err != nil {
		logger.Debug(slip.Bettor, "broadcast_error", fmt.Sprintf("channel=%s error=%v", n.channelID, err))
		log.Printf("Failed to publish settlement to channel %s: %v", n.channelID, err)
	} else {
		logger.Debug(slip.Bettor, "broadcast_settlement", fmt.Sprintf("slip_id=%s payout=%d channel=%s", slip.SlipID, payout, n.channelID))
	}
}

// NotifyMatchResult broadcasts a resolved match to the channel.
func (n *Notifier) NotifyMatchResult(m *storage.Match) {
	if n.channelID == "" || m == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var outcome string
	switch m.Result {
	case engine.ResultHomeWin:
		outcome = fmt.Sprintf("%s wins", m.HomeTeam)
	case engine.ResultAwayWin:
		outcome = fmt.Sprintf("%s wins", m.AwayTeam)
	case engine.ResultDraw:
		outcome = "Draw"
	default:
		return
	}

	message := fmt.Sprintf("🏁 *Match Resolved*\n\n%s vs %s \\(turn %d\\)\n\nResult: *%s*",
		escapeMarkdown(m.HomeTeam),
		escapeMarkdown(m.AwayTeam),
		m.Turn,
		escapeMarkdown(outcome))

	recipient := n.getChannelRecipient()
	_, err := n.bot.Send(recipient, message, &telebot.SendOptions{
		ParseMode: telebot.ModeMarkdown,
	})
	if err != nil {
		logger.Debug("", "broadcast_error", fmt.Sprintf("channel=%s error=%v", n.channelID, err))
		log.Printf("Failed to publish match result to channel %s: %v", n.channelID, err)
	} else {
		logger.Debug("", "broadcast_match_result", fmt.Sprintf("match_id=%s result=%s channel=%s", m.MatchID, m.Result, n.channelID))
	}
}

// getChannelRecipient returns the appropriate recipient for the configured channel
func (n *Notifier) getChannelRecipient() telebot.Recipient {
	if strings.HasPrefix(n.channelID, "@") {
		return &telebot.Chat{Username: n.channelID}
	}
	id, err := strconv.ParseInt(n.channelID, 10, 64)
	if err != nil {
		return &telebot.Chat{ID: 0}
	}
	return &telebot.Chat{ID: id}
}

// escapeMarkdown escapes special characters for Telegram Markdown mode
func escapeMarkdown(s string) string {
	escaped := s
	escaped = strings.ReplaceAll(escaped, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "*", `\*`)
	escaped = strings.ReplaceAll(escaped, "_", `\_`)
	escaped = strings.ReplaceAll(escaped, "[", `\[`)
	escaped = strings.ReplaceAll(escaped, "]", `\]`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)
	escaped = strings.ReplaceAll(escaped, ".", `\.`)
	escaped = strings.ReplaceAll(escaped, "!", `\!`)
	return escaped
}
