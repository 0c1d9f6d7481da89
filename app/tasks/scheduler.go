package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/cfg"
	"github.com/avlasov/newsgate/app/database"
	"github.com/avlasov/newsgate/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler owns the background worker pool. It periodically enqueues
// a pipeline run per enabled bot; the scheduler only decides WHEN a
// run starts - everything about a run's contents lives in the
// pipeline. At most one queued-or-running task per bot at a time, so
// overlapping runs for a bot cannot happen.
type Scheduler struct {
	profileCache *bot.ProfileCache
	botRepo      database.BotRepository
	pipe         *pipeline.Pipeline
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface

	mu      sync.Mutex
	nextRun map[string]time.Time
	inQueue map[string]bool
}

func NewScheduler(profileCache *bot.ProfileCache, botRepo database.BotRepository,
	pipe *pipeline.Pipeline) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		profileCache: profileCache,
		botRepo:      botRepo,
		pipe:         pipe,
		interval:     time.Duration(c.SchedulerInterval) * time.Second,
		workerCount:  2,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 100),
		nextRun:      make(map[string]time.Time),
		inQueue:      make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueBotRun queues an immediate pipeline run for a bot unless one
// is already queued or running.
func (s *Scheduler) EnqueueBotRun(profile *bot.Profile) error {
	if !s.markInQueue(profile.ID) {
		return fmt.Errorf("a run for bot %s is already queued", profile.ID)
	}

	task := NewProcessBotTask(profile, s.pipe)
	if err := s.EnqueueTask(task); err != nil {
		s.clearInQueue(profile.ID)
		return err
	}
	return nil
}

func (s *Scheduler) enqueueStartupTasks() {
	profiles := s.profileCache.GetProfiles()
	if len(profiles) == 0 {
		slog.Debug("No bot profiles found")
		return
	}

	slog.Debug("Processing bot profiles", "count", len(profiles))

	for _, profile := range profiles {
		syncTask := NewSyncBotConfigTask(profile, s.botRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncBotConfigTask", "bot", profile.ID, "error", err)
			continue
		}

		if !profile.Settings.Enabled {
			slog.Debug("Bot disabled, skipping ProcessBotTask", "bot", profile.ID)
			continue
		}

		if err := s.EnqueueBotRun(profile); err != nil {
			slog.Warn("Failed to enqueue ProcessBotTask", "bot", profile.ID, "error", err)
			continue
		}
		s.setNextRun(profile)
	}
}

func (s *Scheduler) enqueueDueTasks() {
	profiles := s.profileCache.GetEnabledProfiles()
	if len(profiles) == 0 {
		slog.Debug("No enabled bot profiles found")
		return
	}

	now := time.Now().UTC()
	for _, profile := range profiles {
		s.mu.Lock()
		next, known := s.nextRun[profile.ID]
		s.mu.Unlock()

		if known && next.After(now) {
			continue
		}

		if err := s.EnqueueBotRun(profile); err != nil {
			slog.Debug("Skipping bot run", "bot", profile.ID, "reason", err)
			continue
		}
		s.setNextRun(profile)
	}
}

func (s *Scheduler) setNextRun(profile *bot.Profile) {
	s.mu.Lock()
	s.nextRun[profile.ID] = time.Now().UTC().Add(profile.Settings.RefreshIntervalDuration())
	s.mu.Unlock()
}

// markInQueue claims the per-bot queue slot; false means a task for
// this bot is already queued or running.
func (s *Scheduler) markInQueue(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inQueue[botID] {
		return false
	}
	s.inQueue[botID] = true
	return true
}

func (s *Scheduler) clearInQueue(botID string) {
	s.mu.Lock()
	delete(s.inQueue, botID)
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 10*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if task.GetType() == TaskTypeProcessBot {
		s.clearInQueue(task.GetBotID())
	}

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "bot", task.GetBotID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if task.GetType() == TaskTypeProcessBot && !s.markInQueue(task.GetBotID()) {
						slog.Debug("Skipping task retry, newer run already queued", "type", string(task.GetType()), "id", task.GetID())
						return
					}
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						if task.GetType() == TaskTypeProcessBot {
							s.clearInQueue(task.GetBotID())
						}
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
