package advisor

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	advisorService "dairy-advisor/internal/core/advisor"
	"dairy-advisor/internal/core/breed"
	"dairy-advisor/internal/core/forecast"
	"dairy-advisor/internal/core/ranking"
	"dairy-advisor/internal/pkg/common"
)

// Advisor 推薦引擎提供給 HTTP 層的操作
type Advisor interface {
	Recommend(ctx context.Context, req advisorService.RecommendRequest) (*advisorService.Recommendation, error)
	ForecastSeries(ctx context.Context, datasetID, region string, horizon int) (*forecast.Result, error)
	TopRegionsByVolume(ctx context.Context, year *int, topN int) ([]ranking.Entry, error)
	BestMonths(ctx context.Context, datasetID, region string, topN int) ([]ranking.Entry, error)
	CensusOverview(ctx context.Context, topN int) (*advisorService.CensusOverview, error)
	Breeds() []breed.Profile
	Breed(name string) (breed.Profile, error)
}

// Handler 推薦相關 API 處理程序
type Handler struct {
	engine  Advisor
	queries QueryRepository
	debug   bool
}

// NewHandler 創建處理程序，queries 為 nil 時已儲存查詢的端點回傳 503
func NewHandler(engine Advisor, queries QueryRepository, debug bool) *Handler {
	return &Handler{
		engine:  engine,
		queries: queries,
		debug:   debug,
	}
}

// Register 註冊路由
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/recommendations", h.HandleRecommend)
	api.GET("/forecast/:dataset", h.HandleForecast)
	api.GET("/regions/top", h.HandleTopRegions)
	api.GET("/months/best", h.HandleBestMonths)
	api.GET("/census/overview", h.HandleCensusOverview)
	api.GET("/breeds", h.HandleBreeds)
	api.GET("/breeds/:name", h.HandleBreed)

	queries := api.Group("/queries")
	{
		queries.POST("", h.HandleSaveQuery)
		queries.GET("", h.HandleListQueries)
		queries.GET("/:id", h.HandleGetQuery)
		queries.DELETE("/:id", h.HandleDeleteQuery)
	}
}

// HandleRecommend 產生投資推薦
func (h *Handler) HandleRecommend(c *gin.Context) {
	var req advisorService.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, common.NewError(common.ErrCodeInvalidRequest, "invalid request body", http.StatusBadRequest, err))
		return
	}

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("breed", req.Breed),
		zap.Int("herd_size", req.HerdSize),
	)

	rec, err := h.engine.Recommend(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleForecast 單一序列的趨勢預測
func (h *Handler) HandleForecast(c *gin.Context) {
	horizon, err := queryInt(c, "horizon", 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.engine.ForecastSeries(c.Request.Context(), c.Param("dataset"), c.Query("region"), horizon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleTopRegions 依平均收乳量排名地區
func (h *Handler) HandleTopRegions(c *gin.Context) {
	top, err := queryInt(c, "top", 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	var year *int
	if c.Query("year") != "" {
		y, err := queryInt(c, "year", 0)
		if err != nil {
			h.fail(c, err)
			return
		}
		year = common.IntPtr(y)
	}

	entries, err := h.engine.TopRegionsByVolume(c.Request.Context(), year, top)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": entries})
}

// HandleBestMonths 依月平均值排名月份
func (h *Handler) HandleBestMonths(c *gin.Context) {
	top, err := queryInt(c, "top", 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	entries, err := h.engine.BestMonths(c.Request.Context(), c.DefaultQuery("dataset", "volume"), c.Query("region"), top)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": entries})
}

// HandleCensusOverview 普查摘要
func (h *Handler) HandleCensusOverview(c *gin.Context) {
	top, err := queryInt(c, "top", 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	overview, err := h.engine.CensusOverview(c.Request.Context(), top)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// HandleBreeds 品種清單
func (h *Handler) HandleBreeds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"breeds": h.engine.Breeds()})
}

// HandleBreed 單一品種
func (h *Handler) HandleBreed(c *gin.Context) {
	profile, err := h.engine.Breed(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// fail 將錯誤轉為 ErrorResponse，僅在除錯模式附上原始錯誤
func (h *Handler) fail(c *gin.Context, err error) {
	ce := common.ToCustomError(err)

	fields := []zap.Field{
		zap.String("request_id", requestid.Get(c)),
		zap.String("path", c.Request.URL.Path),
		zap.String("code", ce.Code),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogWarn("請求無效", fields...)
	}

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	if h.debug && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	c.AbortWithStatusJSON(ce.Status, resp)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &common.InvalidInputError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}
