package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
	"github.com/user/moviebot/internal/utils"
)

// SearchState 搜索请求所处的阶段
type SearchState string

const (
	StateReceived      SearchState = "RECEIVED"
	StatePolicyChecked SearchState = "POLICY_CHECKED"
	StateAdShown       SearchState = "AD_SHOWN"
	StateAdExpired     SearchState = "AD_EXPIRED"
	StateResultSent    SearchState = "RESULT_SENT"
	StateDenied        SearchState = "DENIED"
)

const (
	// DefaultMaxResults 每次回复的片名匹配上限
	DefaultMaxResults = 5
	// queueNoticeTTL 排队提示保留时长
	queueNoticeTTL = 5 * time.Second
)

// SearchRequest 单个用户的一次查询
type SearchRequest struct {
	ChatID int64
	UserID int64
	Query  string
}

// SearchOutcome 请求的处理结果
type SearchOutcome struct {
	State       SearchState
	Denial      *model.Denial
	AdID        string
	AdMessageID int
	Results     []model.Movie
	Total       int
}

// LookupResult 片库查询结果
type LookupResult struct {
	Movies []model.Movie
	// Total 全部匹配数（包括被截断的）
	Total int
	// ExactCode 查询命中影片编码时为 true
	ExactCode bool
}

// SearchConfig 搜索服务配置
type SearchConfig struct {
	MaxActive  int
	MaxResults int
	CacheSize  int
	CacheTTL   time.Duration
}

// SearchService 搜索流程：策略检查、广告、查询、结果
type SearchService struct {
	store      *repository.Store
	policy     *Policy
	msgr       messenger.Messenger
	ads        *Expirer
	autoDelete *Expirer
	clock      Clock
	log        *zap.Logger

	maxActive  int64
	maxResults int
	slots      *semaphore.Weighted
	active     atomic.Int64
	waiting    atomic.Int64

	cache *utils.SearchCache[LookupResult]
	gen   atomic.Uint64
	sf    singleflight.Group
}

func NewSearchService(
	store *repository.Store,
	policy *Policy,
	msgr messenger.Messenger,
	ads *Expirer,
	autoDelete *Expirer,
	clock Clock,
	cfg SearchConfig,
) *SearchService {
	if cfg.MaxActive < 1 {
		cfg.MaxActive = 30
	}
	if cfg.MaxResults < 1 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &SearchService{
		store:      store,
		policy:     policy,
		msgr:       msgr,
		ads:        ads,
		autoDelete: autoDelete,
		clock:      clock,
		log:        logger.Named("search"),
		maxActive:  int64(cfg.MaxActive),
		maxResults: cfg.MaxResults,
		slots:      semaphore.NewWeighted(int64(cfg.MaxActive)),
		cache:      utils.NewSearchCache[LookupResult](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Active 已离开队列、正在执行的搜索数
func (s *SearchService) Active() int64 { return s.active.Load() }

// Search 完整执行一次搜索请求
// 只返回尚未告知用户的错误
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (SearchOutcome, error) {
	out := SearchOutcome{State: StateReceived}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return out, nil
	}

	if err := s.policy.Evaluate(ctx, req.UserID, s.clock.Now()); err != nil {
		d, ok := model.AsDenial(err)
		if !ok {
			return out, fmt.Errorf("evaluate policy: %w", err)
		}
		out.State, out.Denial = StateDenied, d
		media, opts := DenialMessage(d, s.store.GetSettings())
		if _, err := s.msgr.Send(ctx, req.ChatID, media, opts); err != nil {
			s.log.Warn("send denial failed", zap.Int64("chat", req.ChatID), zap.Error(err))
		}
		return out, nil
	}
	out.State = StatePolicyChecked

	if err := s.enter(ctx, req.ChatID); err != nil {
		return out, err
	}
	defer s.leave()

	if ad, ok := s.NextAd(); ok {
		out.AdID = ad.ID
		msgID, err := s.msgr.Send(ctx, req.ChatID, ad.Media, messenger.SendOptions{})
		if err != nil {
			s.log.Warn("send ad failed", zap.String("ad", ad.ID), zap.Int64("chat", req.ChatID), zap.Error(err))
		} else {
			out.State, out.AdMessageID = StateAdShown, msgID
			<-s.ads.ScheduleDelete(ctx, s.msgr, req.ChatID, msgID, ad.DisplayFor())
			out.State = StateAdExpired
		}
	}

	st := s.store.GetSettings()
	overlayID, err := s.msgr.Send(ctx, req.ChatID, orDefault(st.Searching, TextSearching), messenger.SendOptions{})
	if err != nil {
		s.log.Debug("send searching overlay failed", zap.Error(err))
	}

	res := s.Lookup(query)

	if overlayID != 0 {
		if err := s.msgr.Delete(ctx, req.ChatID, overlayID); err != nil && !errors.Is(err, messenger.ErrMessageGone) {
			s.log.Debug("delete searching overlay failed", zap.Error(err))
		}
	}

	out.Results, out.Total = res.Movies, res.Total
	if err := s.deliver(ctx, req.ChatID, query, res, st); err != nil {
		return out, err
	}
	out.State = StateResultSent
	return out, nil
}

// enter 获取搜索名额，全部占满时告知用户排队位置
func (s *SearchService) enter(ctx context.Context, chatID int64) error {
	if !s.slots.TryAcquire(1) {
		pos := s.waiting.Add(1)
		defer s.waiting.Add(-1)
		text := fmt.Sprintf(TextQueued, pos, s.active.Load(), s.maxActive)
		if id, err := messenger.SendText(ctx, s.msgr, chatID, text); err == nil {
			s.autoDelete.ScheduleDelete(ctx, s.msgr, chatID, id, queueNoticeTTL)
		}
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("wait for search slot: %w", err)
		}
	}
	s.active.Add(1)
	return nil
}

func (s *SearchService) leave() {
	s.active.Add(-1)
	s.slots.Release(1)
}

func (s *SearchService) deliver(ctx context.Context, chatID int64, query string, res LookupResult, st model.Settings) error {
	if len(res.Movies) == 0 {
		_, err := messenger.SendText(ctx, s.msgr, chatID, fmt.Sprintf(TextNotFound, query))
		return err
	}

	autoDelete := time.Duration(st.ResultAutoDeleteSeconds) * time.Second
	var sent int
	for _, m := range res.Movies {
		id, err := s.msgr.Send(ctx, chatID, m.Content(), messenger.SendOptions{})
		if err != nil {
			s.log.Warn("send movie failed", zap.String("movie", m.ID), zap.Int64("chat", chatID), zap.Error(err))
			continue
		}
		sent++
		if autoDelete > 0 {
			s.autoDelete.ScheduleDelete(ctx, s.msgr, chatID, id, autoDelete)
		}
	}
	if sent == 0 {
		_, _ = messenger.SendText(ctx, s.msgr, chatID, TextSearchFailed)
		return fmt.Errorf("deliver %d result(s) to %d: every send failed", len(res.Movies), chatID)
	}
	if res.Total > len(res.Movies) {
		_, _ = messenger.SendText(ctx, s.msgr, chatID, fmt.Sprintf(TextRefine, len(res.Movies), res.Total))
	}
	return nil
}

// NextAd 轮询选取下一条启用的广告，并推进持久化游标
func (s *SearchService) NextAd() (model.Ad, bool) {
	// 先读取列表再获取设置锁，保持集合加锁顺序
	var active []model.Ad
	for _, a := range s.store.Ads.List() {
		if a.Active {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return model.Ad{}, false
	}

	var picked model.Ad
	_, err := s.store.UpdateSettings(func(st *model.Settings) error {
		idx := st.AdCursor % len(active)
		picked = active[idx]
		st.AdCursor = (idx + 1) % len(active)
		return nil
	})
	if err != nil {
		s.log.Error("advance ad cursor failed", zap.Error(err))
		return model.Ad{}, false
	}
	return picked, true
}

// Lookup 查询片库
// 编码精确匹配优先，否则按添加顺序做不区分大小写的片名子串匹配，数量受配置上限限制
func (s *SearchService) Lookup(query string) LookupResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return LookupResult{}
	}
	gen := s.gen.Load()
	key := strconv.FormatUint(gen, 10) + ":" + q
	if r, ok := s.cache.Get(key); ok {
		return r
	}
	v, _, _ := s.sf.Do(key, func() (any, error) {
		r := s.lookup(q)
		if s.gen.Load() == gen {
			s.cache.Set(key, r)
		}
		return r, nil
	})
	return v.(LookupResult)
}

func (s *SearchService) lookup(q string) LookupResult {
	movies := s.store.Movies.List()

	code := model.NormalizeCode(q)
	for _, m := range movies {
		if m.Code != "" && model.NormalizeCode(m.Code) == code {
			return LookupResult{Movies: []model.Movie{m}, Total: 1, ExactCode: true}
		}
	}

	var res LookupResult
	for _, m := range movies {
		if !strings.Contains(strings.ToLower(m.Title), q) {
			continue
		}
		res.Total++
		if len(res.Movies) < s.maxResults {
			res.Movies = append(res.Movies, m)
		}
	}
	return res
}

// InvalidateCache 片库变更后清空查询缓存
func (s *SearchService) InvalidateCache() {
	s.gen.Add(1)
	s.cache.Clear()
}
