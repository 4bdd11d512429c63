package auth

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdqueue/backend/internal/spotify"
	"github.com/crowdqueue/backend/pkg/database"
	"github.com/crowdqueue/backend/pkg/jwt"
	"github.com/crowdqueue/backend/pkg/redis"
)

type Handler struct {
	spotifyClient *spotify.Client
	tokenStore    *redis.TokenStore
	db            *database.MySQLDB
}

func NewHandler(spotifyClient *spotify.Client, tokenStore *redis.TokenStore, db *database.MySQLDB) *Handler {
	return &Handler{
		spotifyClient: spotifyClient,
		tokenStore:    tokenStore,
		db:            db,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/login", h.login)
		auth.GET("/callback", h.callback)

		protected := auth.Group("", AuthMiddleware(h.tokenStore))
		protected.GET("/refresh", h.refresh)
		protected.GET("/user", h.user)
		protected.POST("/logout", h.logout)
	}
}

func (h *Handler) login(c *gin.Context) {
	state := uuid.New().String()
	authURL := h.spotifyClient.GetAuthURL(state)
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

func (h *Handler) callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	token, err := h.spotifyClient.ExchangeToken(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.spotifyClient.GetUser(c.Request.Context(), token.AccessToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.UpsertUserBySpotifyID(profile.ID, profile.DisplayName, profile.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store user"})
		return
	}

	tokenInfo := &redis.TokenInfo{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second).UTC(),
	}

	if err := h.tokenStore.StoreTokens(c.Request.Context(), user.ID.String(), tokenInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store tokens"})
		return
	}

	jwtToken, err := jwt.GenerateToken(user.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "auth_token",
		Value:    jwtToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "/"
	}

	c.Redirect(http.StatusFound, frontendURL)
}

func (h *Handler) refresh(c *gin.Context) {
	userID := c.GetString("user_id")

	tokenInfo, err := h.tokenStore.GetTokens(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	newToken, err := h.spotifyClient.RefreshToken(c.Request.Context(), tokenInfo.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	expiresAt := time.Now().Add(time.Duration(newToken.ExpiresIn) * time.Second).UTC()
	if err := h.tokenStore.UpdateAccessToken(c.Request.Context(), userID, newToken.AccessToken, expiresAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token refreshed"})
}

func (h *Handler) user(c *gin.Context) {
	user, err := h.db.GetUserByID(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.tokenStore.DeleteTokens(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:   "auth_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
