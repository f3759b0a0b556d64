package advisor

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"dairy-advisor/internal/infrastructure/storage"
	"dairy-advisor/internal/pkg/common"
)

// QueryRepository 已儲存查詢的存取介面
type QueryRepository interface {
	Save(ctx context.Context, q storage.SavedQuery) (*storage.SavedQuery, error)
	List(ctx context.Context, userID string) ([]storage.SavedQuery, error)
	Get(ctx context.Context, id string) (*storage.SavedQuery, error)
	Delete(ctx context.Context, id string) error
}

// SaveQueryRequest 儲存查詢請求
type SaveQueryRequest struct {
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Request     json.RawMessage `json:"request"`
	Summary     json.RawMessage `json:"summary,omitempty"`
}

// HandleSaveQuery 儲存查詢
func (h *Handler) HandleSaveQuery(c *gin.Context) {
	if h.queries == nil {
		h.fail(c, common.ErrStoreDisabled)
		return
	}

	var req SaveQueryRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		h.fail(c, common.NewError(common.ErrCodeInvalidRequest, "invalid request body", http.StatusBadRequest, err))
		return
	}

	saved, err := h.queries.Save(c.Request.Context(), storage.SavedQuery{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Request:     req.Request,
		Summary:     req.Summary,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// HandleListQueries 列出使用者的查詢
func (h *Handler) HandleListQueries(c *gin.Context) {
	if h.queries == nil {
		h.fail(c, common.ErrStoreDisabled)
		return
	}

	list, err := h.queries.List(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queries": list})
}

// HandleGetQuery 讀取單一查詢
func (h *Handler) HandleGetQuery(c *gin.Context) {
	if h.queries == nil {
		h.fail(c, common.ErrStoreDisabled)
		return
	}

	q, err := h.queries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// HandleDeleteQuery 刪除查詢
func (h *Handler) HandleDeleteQuery(c *gin.Context) {
	if h.queries == nil {
		h.fail(c, common.ErrStoreDisabled)
		return
	}

	if err := h.queries.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
