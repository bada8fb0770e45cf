package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
	"github.com/user/moviebot/internal/utils"
)

// maxRestoreBytes 上传备份的大小上限
const maxRestoreBytes = 32 << 20

// WebhookSource 解析平台 Webhook 请求
type WebhookSource interface {
	ParseWebhook(r *http.Request) (model.Event, bool, error)
}

// API owner 管理 API 与平台 Webhook
type API struct {
	Admin  *service.AdminService
	Search *service.SearchService

	// 长轮询模式下 Webhook 和 Dispatch 为 nil
	Webhook       WebhookSource
	WebhookSecret string
	Dispatch      func(model.Event)

	// MaxRestoreBytes 上传备份的大小上限（包含 multipart 封装）
	MaxRestoreBytes int64

	log *zap.Logger
}

func NewAPI(admin *service.AdminService, search *service.SearchService) *API {
	return &API{Admin: admin, Search: search, MaxRestoreBytes: maxRestoreBytes, log: logger.Named("api")}
}

// Health 健康检查
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// TelegramWebhook 接收一条更新，路径中的密钥不匹配时返回 404
func (a *API) TelegramWebhook(c *gin.Context) {
	if a.Webhook == nil || a.Dispatch == nil {
		utils.NotFound(c, "")
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(a.WebhookSecret)) != 1 {
		utils.NotFound(c, "")
		return
	}
	ev, ok, err := a.Webhook.ParseWebhook(c.Request)
	if err != nil {
		a.log.Warn("bad webhook payload", zap.Error(err))
		utils.BadRequest(c, "bad update")
		return
	}
	if ok {
		a.Dispatch(ev)
	}
	c.Status(http.StatusOK)
}

// Stats 返回 /stats 的统计数据
func (a *API) Stats(c *gin.Context) {
	utils.Success(c, a.Admin.Stats())
}

func (a *API) ListMovies(c *gin.Context) {
	utils.Success(c, a.Admin.ListMovies())
}

// CreateMovieRequest POST /api/admin/movies 请求体
type CreateMovieRequest struct {
	Title       string      `json:"title" binding:"required"`
	Code        string      `json:"code"`
	Description string      `json:"description"`
	Media       model.Media `json:"media"`
}

func (a *API) CreateMovie(c *gin.Context) {
	var req CreateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid body: "+err.Error())
		return
	}
	m, err := a.Admin.AddMovie(c.Request.Context(), service.MovieInput{
		Title:       req.Title,
		Code:        req.Code,
		Description: req.Description,
		Media:       req.Media,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	utils.Success(c, m)
}

// DeleteMovie 按 ID 或编码删除影片，未匹配时也返回成功
func (a *API) DeleteMovie(c *gin.Context) {
	removed, err := a.Admin.RemoveMovie(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"removed": removed})
}

// Lookup 直接查询片库（不做策略检查，不展示广告）
func (a *API) Lookup(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		utils.BadRequest(c, "q is required")
		return
	}
	utils.Success(c, a.Search.Lookup(q))
}

func (a *API) ListAds(c *gin.Context) {
	utils.Success(c, a.Admin.ListAds())
}

// MaintenanceRequest POST /api/admin/maintenance 请求体
type MaintenanceRequest struct {
	On *bool `json:"on" binding:"required"`
}

func (a *API) SetMaintenance(c *gin.Context) {
	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid body: "+err.Error())
		return
	}
	st, err := a.Admin.SetMaintenance(*req.On)
	if err != nil {
		a.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"maintenance": st.Maintenance})
}

// Backup 以文件形式下载全部数据
func (a *API) Backup(c *gin.Context) {
	data, err := a.Admin.Backup()
	if err != nil {
		a.fail(c, err)
		return
	}
	name := "backup-" + time.Now().UTC().Format("20060102-150405") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Restore 用上传的备份替换全部数据
// 支持原始请求体或 multipart 字段 "file"
func (a *API) Restore(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxRestoreBytes)
	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			utils.BadRequest(c, "cannot read upload")
			return
		}
		defer f.Close()
		body = f
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(c, http.StatusRequestEntityTooLarge, "backup too large")
			return
		}
		utils.BadRequest(c, "cannot read body")
		return
	}
	b, err := a.Admin.Restore(data)
	if err != nil {
		a.fail(c, err)
		return
	}
	utils.SuccessWithMessage(c, "restored", gin.H{
		"movies":   len(b.Movies),
		"ads":      len(b.Ads),
		"users":    len(b.Users),
		"channels": len(b.Channels),
	})
}

func (a *API) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrDuplicate):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, model.ErrNotFound):
		utils.NotFound(c, err.Error())
	default:
		a.log.Error("admin api failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		utils.InternalServerError(c, "")
	}
}
