package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/utils"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBService 从 TMDB 补全影片简介，key 为 v4 读取令牌
type TMDBService struct {
	token   string
	baseURL string
	client  *utils.HTTPClient
	group   singleflight.Group
	log     *zap.Logger
}

// NewTMDBService token 为空时返回 nil（不做补全）
func NewTMDBService(token string) *TMDBService {
	if token == "" {
		return nil
	}
	return &TMDBService{
		token:   token,
		baseURL: tmdbBaseURL,
		client:  utils.NewHTTPClient(),
		log:     logger.Named("tmdb"),
	}
}

type tmdbSearchResponse struct {
	Results []struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Overview    string `json:"overview"`
		ReleaseDate string `json:"release_date"`
	} `json:"results"`
}

// Overview 返回与片名最匹配条目的剧情简介
func (s *TMDBService) Overview(ctx context.Context, title string) (string, error) {
	query := utils.CleanTitle(title)
	if query == "" {
		return "", fmt.Errorf("empty title")
	}
	// 同时添加的相同片名共用一次请求
	val, err, _ := s.group.Do(strings.ToLower(query), func() (interface{}, error) {
		return s.fetchOverview(ctx, query)
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

func (s *TMDBService) fetchOverview(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s/search/movie?query=%s&include_adult=false&language=en-US&page=1", s.baseURL, url.QueryEscape(query))
	headers := map[string]string{
		"Authorization": "Bearer " + s.token,
		"Accept":        "application/json",
	}
	var result tmdbSearchResponse
	if err := s.client.GetJSON(ctx, u, headers, &result); err != nil {
		return "", fmt.Errorf("tmdb search %q: %w", query, err)
	}
	for _, r := range result.Results {
		if r.Overview != "" {
			s.log.Debug("tmdb match", zap.String("query", query), zap.Int("id", r.ID), zap.String("title", r.Title))
			return r.Overview, nil
		}
	}
	return "", fmt.Errorf("tmdb: no overview for %q", query)
}
