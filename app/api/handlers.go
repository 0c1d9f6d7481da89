package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/database"
	"github.com/avlasov/newsgate/app/tasks"
)

const defaultListLimit = 50

type Handler struct {
	profileCache *bot.ProfileCache
	botRepo      database.BotRepository
	articleRepo  database.ArticleRepository
	scheduler    tasks.TaskSchedulerInterface
}

func NewHandler(profileCache *bot.ProfileCache, botRepo database.BotRepository,
	articleRepo database.ArticleRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		profileCache: profileCache,
		botRepo:      botRepo,
		articleRepo:  articleRepo,
		scheduler:    scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if botCount, err := h.botRepo.GetBotCount(); err == nil {
		health["bots"] = botCount
	}

	health["loaded_profiles"] = h.profileCache.GetProfileCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	profiles := h.profileCache.GetProfiles()

	stats := make([]BotStats, 0, len(profiles))
	for _, profile := range profiles {
		accepted, unwanted, err := h.articleRepo.GetStats(profile.ID)
		if err != nil {
			slog.Error("Database error", "operation", "get_stats", "bot", profile.ID, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		stats = append(stats, BotStats{
			BotID:    profile.ID,
			Name:     profile.Name,
			Enabled:  profile.Settings.Enabled,
			Accepted: accepted,
			Rejected: unwanted,
		})
	}

	c.JSON(http.StatusOK, gin.H{"bots": stats})
}

func (h *Handler) APIListBots(c *gin.Context) {
	profiles := h.profileCache.GetProfiles()

	bots := make([]BotInfo, 0, len(profiles))
	for _, profile := range profiles {
		bots = append(bots, BotInfo{
			ID:                  profile.ID,
			Name:                profile.Name,
			SourceURL:           profile.SourceURL,
			Enabled:             profile.Settings.Enabled,
			Keywords:            profile.Keywords,
			Blacklist:           profile.Blacklist,
			SimilarityThreshold: profile.Settings.SimilarityThreshold,
			RecencyWindowHours:  profile.Settings.RecencyWindow,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(bots),
		"bots":  bots,
	})
}

func (h *Handler) APIGetArticles(c *gin.Context) {
	profile, ok := h.lookupProfile(c)
	if !ok {
		return
	}

	articles, err := h.articleRepo.GetArticles(profile.ID, h.limit(c))
	if err != nil {
		slog.Error("Database error", "operation", "get_articles", "bot", profile.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items := make([]ArticleInfo, 0, len(articles))
	for _, a := range articles {
		items = append(items, ArticleInfo{
			ID:           a.ID,
			Title:        a.Title,
			URL:          a.URL,
			ImageURL:     a.ImageURL,
			UsedKeywords: a.UsedKeywords,
			CreatedAt:    a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"bot":      profile.ID,
		"total":    len(items),
		"articles": items,
	})
}

func (h *Handler) APIGetUnwanted(c *gin.Context) {
	profile, ok := h.lookupProfile(c)
	if !ok {
		return
	}

	unwanted, err := h.articleRepo.GetUnwanted(profile.ID, h.limit(c))
	if err != nil {
		slog.Error("Database error", "operation", "get_unwanted", "bot", profile.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items := make([]UnwantedInfo, 0, len(unwanted))
	for _, a := range unwanted {
		items = append(items, UnwantedInfo{
			ID:        a.ID,
			Title:     a.Title,
			URL:       a.URL,
			Reason:    a.Reason,
			CreatedAt: a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"bot":      profile.ID,
		"total":    len(items),
		"unwanted": items,
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	profile, ok := h.lookupProfile(c)
	if !ok {
		return
	}

	if err := h.scheduler.EnqueueBotRun(profile); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Run not queued",
			"message": err.Error(),
		})
		return
	}

	slog.Info("Manual run queued", "bot", profile.ID)
	c.JSON(http.StatusAccepted, gin.H{
		"bot":     profile.ID,
		"message": "run queued",
	})
}

func (h *Handler) lookupProfile(c *gin.Context) (*bot.Profile, bool) {
	id := c.Param("id")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return nil, false
	}

	profile, err := h.profileCache.GetProfile(id)
	if err != nil {
		slog.Error("Bot profile not found", "bot", id, "error", err)
		c.Status(http.StatusNotFound)
		return nil, false
	}

	return profile, true
}

func (h *Handler) limit(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	return limit
}
