package handler

import (
	"net/http"

	"fadechat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type profileRequest struct {
	DisplayName string   `json:"displayName" binding:"required,max=50"`
	Tag         string   `json:"tag" binding:"max=4"`
	Age         *int     `json:"age" binding:"omitempty,gte=0,lte=120"`
	Gender      string   `json:"gender"`
	Interests   []string `json:"interests"`
}

// UpsertProfile stores the demographic profile the matchmaker filters on.
func (h *Handler) UpsertProfile(c *gin.Context) {
	userID := h.bearerUserID(c)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{
		ID:          userID,
		DisplayName: req.DisplayName,
		Tag:         req.Tag,
		Age:         req.Age,
		Gender:      req.Gender,
		Interests:   pq.StringArray(req.Interests),
	}
	if err := h.Storage.SaveUser(c.Request.Context(), user); err != nil {
		h.Log.Error("failed to save profile", "user", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}
