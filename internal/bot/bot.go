package bot

import (
	"fmt"
	"log"
	"strings"

	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"

	"gopkg.in/telebot.v3"
)

// formatAmount formats a token amount
func formatAmount(amount uint64) string {
	return fmt.Sprintf("%d LBT", amount)
}

// StartBot creates the long-polling bot, registers the read-only query
// commands and starts polling. Blocks until the bot stops.
func StartBot(botToken, poolID string) {
	if botToken == "" {
		log.Fatal("bot token not set")
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token: botToken,
		Poller: &telebot.LongPoller{
			Timeout: 10,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	b.Handle("/start", func(c telebot.Context) error {
		logger.Debug("", "command_start", fmt.Sprintf("username=%s", c.Sender().Username))
		return c.Send("Welcome to the league betting pool!\n\n" +
			"/pool — pool balance and APY\n" +
			"/matches <season> — fixtures and odds\n" +
			"/mybets <address> — your betslips")
	})

	b.Handle("/pool", func(c telebot.Context) error {
		pool, err := storage.GetPool(poolID)
		if err != nil || pool == nil {
			logger.Debug("", "command_pool_failed", fmt.Sprintf("error=%v", err))
			return c.Send("Pool data unavailable right now.")
		}
		status := "active"
		if !pool.IsActive {
			status = "inactive"
		}
		return c.Send(fmt.Sprintf("🏦 Pool %s (%s)\n\nLiquidity: %s\nIn play: %s\nCollected: %s\nPaid out: %s\nAPY: %d bps",
			pool.PoolID, status,
			formatAmount(pool.TotalLiquidity),
			formatAmount(pool.TotalBetsInPlay),
			formatAmount(pool.TotalCollected),
			formatAmount(pool.TotalPaidOut),
			engine.PoolAPY(*pool)))
	})

	b.Handle("/matches", func(c telebot.Context) error {
		seasonID := strings.TrimSpace(c.Message().Payload)
		matches, err := storage.ListMatches(seasonID)
		if err != nil {
			logger.Debug("", "command_matches_failed", fmt.Sprintf("error=%v", err))
			return c.Send("Match data unavailable right now.")
		}
		if len(matches) == 0 {
			return c.Send("No matches found.")
		}
		if len(matches) > 10 {
			matches = matches[:10]
		}
		var sb strings.Builder
		sb.WriteString("⚽ Matches\n")
		for _, m := range matches {
			sb.WriteString(fmt.Sprintf("\n%s vs %s (turn %d)\n", m.HomeTeam, m.AwayTeam, m.Turn))
			if m.Result == engine.ResultPending {
				sb.WriteString(fmt.Sprintf("  1: %.2fx  X: %.2fx  2: %.2fx\n",
					float64(m.OddsFor(engine.ResultHomeWin))/10000,
					float64(m.OddsFor(engine.ResultDraw))/10000,
					float64(m.OddsFor(engine.ResultAwayWin))/10000))
			} else {
				sb.WriteString(fmt.Sprintf("  Result: %s\n", m.Result))
			}
		}
		return c.Send(sb.String())
	})

	b.Handle("/mybets", func(c telebot.Context) error {
		address := strings.TrimSpace(c.Message().Payload)
		if address == "" {
			return c.Send("Usage: /mybets <wallet address>")
		}
		slips, err := storage.ListBetslipsByBettor(address)
		if err != nil {
			logger.Debug(address, "command_mybets_failed", fmt.Sprintf("error=%v", err))
			return c.Send("Betslip data unavailable right now.")
		}
		if len(slips) == 0 {
			return c.Send("No betslips for that address.")
		}
		if len(slips) > 10 {
			slips = slips[:10]
		}
		var sb strings.Builder
		sb.WriteString("🎟 Your betslips\n")
		for _, s := range slips {
			state := "open"
			if s.Settled {
				state = fmt.Sprintf("settled, payout %s", formatAmount(s.PayoutAmount))
			}
			sb.WriteString(fmt.Sprintf("\n%s — %s, %d legs, stake %s (%s)\n",
				s.SlipID, s.BetType, len(s.Legs), formatAmount(s.TotalStake), state))
		}
		return c.Send(sb.String())
	})

	logger.Debug("", "bot_started", "")
	b.Start()
}
