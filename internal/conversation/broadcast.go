package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"log/slog"
)

// handleBroadcast fans the admin's message out to every registered user.
// Delivery is sequential with a small delay between sends so the bot API
// rate limits are respected. A failed recipient is logged and skipped.
func (e *Engine) handleBroadcast(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list broadcast recipients: %w", err)
	}

	start := time.Now()
	sent := 0
	for i, u := range users {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.broadcastDelay):
			}
		}
		if err := e.sender.SendText(u.TelegramID, input); err != nil {
			logger.BCAST.Warn("broadcast delivery failed",
				slog.String("event", "broadcast.send"),
				slog.Int64("user_id", u.TelegramID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	logger.BCAST.Info("broadcast done",
		slog.String("event", "broadcast.send"),
		slog.Int("count", sent),
		slog.Duration("duration", logger.Took(start)),
	)

	summary := fmt.Sprintf("Broadcast delivered to %d of %d users", sent, len(users))
	// An admin who broadcast before ever registering has no identity to
	// show on the menu, so registration starts instead.
	if !ValidID(sess.ID) {
		sess.State = StateCollectID
		return []Reply{{Text: summary}, {Text: msgWelcome}}, nil
	}
	return append([]Reply{{Text: summary}}, e.mainMenu(sess)...), nil
}
