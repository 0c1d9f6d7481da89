package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/database"
)

type SyncBotConfigTask struct {
	Task
	Profile *bot.Profile
	botRepo database.BotRepository
}

func NewSyncBotConfigTask(profile *bot.Profile, botRepo database.BotRepository) *SyncBotConfigTask {
	return &SyncBotConfigTask{
		Task:    NewTask(TaskTypeSyncBotConfig, profile.ID),
		Profile: profile,
		botRepo: botRepo,
	}
}

func (t *SyncBotConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.botRepo.UpsertBot(t.Profile.ID, t.Profile.Name, t.Profile.SourceURL)
	if err != nil {
		slog.Error("Task failed", "type", "SyncBotConfig", "bot", t.BotID, "error", err)
		return fmt.Errorf("failed to sync bot config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncBotConfig",
		"bot", t.BotID,
		"duration", t.GetDuration())

	return nil
}
