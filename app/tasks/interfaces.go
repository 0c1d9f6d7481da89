package tasks

import "github.com/avlasov/newsgate/app/bot"

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the HTTP API to manage
// background processing: queue management, worker pool control, and
// on-demand run triggering.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueBotRun(profile *bot.Profile) error
}
