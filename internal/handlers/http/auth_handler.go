package http

import (
	"net/http"
	"strings"

	"roomchat/internal/core/services"
	"roomchat/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	accounts *services.AccountService
	logger   *zap.SugaredLogger
}

func NewAuthHandler(accounts *services.AccountService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

func (h *AuthHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest accepts both a urlencoded form and a JSON body.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("account registered", "user", account.Username)
	c.JSON(http.StatusOK, gin.H{"username": account.Username})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(errors.NewInvalidInputError("username and password are required"))
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}
