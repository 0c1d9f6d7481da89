package database

import "errors"

// ErrDuplicateURL is returned by SaveArticle and SaveUnwanted when the
// (bot, url) uniqueness constraint rejects the write. Concurrent workers
// racing on the same canonical URL rely on this to keep acceptance
// exactly-once per bot and URL.
var ErrDuplicateURL = errors.New("article with this URL already exists for bot")

type BotRepository interface {
	UpsertBot(id, name, sourceURL string) error
	GetBot(id string) (*Bot, error)
	GetBotCount() (int, error)
}

type ArticleRepository interface {
	SaveArticle(article Article) (string, error)
	SaveUnwanted(article UnwantedArticle) (string, error)
	Exists(botID, url string) (bool, error)
	RecentArticles(botID string, limit int) ([]Article, error)

	GetArticles(botID string, limit int) ([]Article, error)
	GetUnwanted(botID string, limit int) ([]UnwantedArticle, error)
	GetStats(botID string) (accepted int, unwanted int, err error)
}
