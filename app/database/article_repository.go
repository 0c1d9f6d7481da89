package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// ArticleRepositoryImpl handles database operations for accepted and
// rejected articles. It is the only component written to concurrently
// by pipeline workers; uniqueness is enforced by the database, not by
// locking in application code.
type ArticleRepositoryImpl struct {
	db *DB
}

var _ ArticleRepository = (*ArticleRepositoryImpl)(nil)

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepositoryImpl {
	return &ArticleRepositoryImpl{db: db}
}

// SaveArticle persists an accepted article. Returns ErrDuplicateURL when
// another worker already stored this URL for the same bot.
func (r *ArticleRepositoryImpl) SaveArticle(article Article) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO articles (bot_id, title, content, url, image_url, used_keywords)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, article.BotID, article.Title, article.Content, article.URL,
		article.ImageURL, pq.Array(article.UsedKeywords)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("save article %s: %w", article.URL, ErrDuplicateURL)
		}
		return "", fmt.Errorf("failed to save article: %w", err)
	}

	return id, nil
}

// SaveUnwanted persists a rejected candidate with its rejection reason.
func (r *ArticleRepositoryImpl) SaveUnwanted(article UnwantedArticle) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO unwanted_articles (bot_id, title, content, reason, url, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, article.BotID, article.Title, article.Content, article.Reason,
		article.URL, article.PublishedAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("save unwanted article %s: %w", article.URL, ErrDuplicateURL)
		}
		return "", fmt.Errorf("failed to save unwanted article: %w", err)
	}

	return id, nil
}

// Exists reports whether the URL was already processed for this bot,
// accepted or rejected, compared case-insensitively.
func (r *ArticleRepositoryImpl) Exists(botID, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM articles WHERE bot_id = $1 AND LOWER(url) = LOWER($2)
			UNION ALL
			SELECT 1 FROM unwanted_articles WHERE bot_id = $1 AND LOWER(url) = LOWER($2)
		)
	`, botID, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check url existence: %w", err)
	}

	return exists, nil
}

// RecentArticles returns the bot's most recently accepted articles,
// newest first, limited to the semantic dedup comparison window.
func (r *ArticleRepositoryImpl) RecentArticles(botID string, limit int) ([]Article, error) {
	return r.queryArticles(`
		SELECT id, bot_id, title, content, url, image_url, used_keywords, created_at
		FROM articles
		WHERE bot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, botID, limit)
}

// GetArticles returns accepted articles for API listing, newest first.
func (r *ArticleRepositoryImpl) GetArticles(botID string, limit int) ([]Article, error) {
	return r.queryArticles(`
		SELECT id, bot_id, title, content, url, image_url, used_keywords, created_at
		FROM articles
		WHERE bot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, botID, limit)
}

// GetUnwanted returns rejected candidates for API listing, newest first.
func (r *ArticleRepositoryImpl) GetUnwanted(botID string, limit int) ([]UnwantedArticle, error) {
	rows, err := r.db.Query(`
		SELECT id, bot_id, title, content, reason, url, published_at, created_at
		FROM unwanted_articles
		WHERE bot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unwanted articles: %w", err)
	}
	defer rows.Close()

	var articles []UnwantedArticle
	for rows.Next() {
		var a UnwantedArticle
		err := rows.Scan(&a.ID, &a.BotID, &a.Title, &a.Content, &a.Reason,
			&a.URL, &a.PublishedAt, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unwanted article row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unwanted article rows: %w", err)
	}

	return articles, nil
}

// GetStats returns accepted/rejected counters for a bot
func (r *ArticleRepositoryImpl) GetStats(botID string) (int, int, error) {
	var accepted, unwanted int
	err := r.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM articles WHERE bot_id = $1),
			(SELECT COUNT(*) FROM unwanted_articles WHERE bot_id = $1)
	`, botID).Scan(&accepted, &unwanted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get article stats: %w", err)
	}

	return accepted, unwanted, nil
}

func (r *ArticleRepositoryImpl) queryArticles(query string, args ...interface{}) ([]Article, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		err := rows.Scan(&a.ID, &a.BotID, &a.Title, &a.Content, &a.URL,
			&a.ImageURL, pq.Array(&a.UsedKeywords), &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}
