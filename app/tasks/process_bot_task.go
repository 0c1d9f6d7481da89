package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/pipeline"
)

type ProcessBotTask struct {
	Task
	Profile *bot.Profile
	pipe    *pipeline.Pipeline
}

func NewProcessBotTask(profile *bot.Profile, pipe *pipeline.Pipeline) *ProcessBotTask {
	return &ProcessBotTask{
		Task:    NewTask(TaskTypeProcessBot, profile.ID),
		Profile: profile,
		pipe:    pipe,
	}
}

func (t *ProcessBotTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Profile.Settings.Enabled {
		slog.Debug("Bot disabled, skipping", "bot", t.BotID)
		return nil
	}

	report := t.pipe.Run(ctx, t.Profile)

	if !report.Success {
		slog.Error("Task failed", "type", "ProcessBot", "bot", t.BotID,
			"run_id", report.RunID, "message", report.Message)
		return fmt.Errorf("pipeline run %s failed: %s", report.RunID, report.Message)
	}

	slog.Info("Task completed",
		"type", "ProcessBot",
		"bot", t.BotID,
		"run_id", report.RunID,
		"duration", t.GetDuration(),
		"total", report.Metrics.TotalFound,
		"processed", report.Metrics.Processed,
		"saved", report.Metrics.Saved,
		"filtered", report.Metrics.Filtered,
		"errors", report.Metrics.Errors)

	return nil
}
