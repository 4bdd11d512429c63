package spotify

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crowdqueue/backend/pkg/models"
)

// queueReader is the slice of the queue service the Spotify surface needs:
// the current vote-ordered state to materialize.
type queueReader interface {
	Get(ctx context.Context) (*models.QueueState, error)
}

type Handler struct {
	client *Client
	queue  queueReader
}

func NewHandler(client *Client, queue queueReader) *Handler {
	return &Handler{client: client, queue: queue}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/search", h.searchTracks)
	r.POST("/queue/export", h.exportQueue)
}

func (h *Handler) searchTracks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 50"})
			return
		}
		limit = parsed
	}

	tracks, err := h.client.SearchTracks(c.Request.Context(), c.GetString("access_token"), query, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

type ExportQueueRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// exportQueue materializes the current queue, in vote order, as a playlist
// under the caller's Spotify account.
func (h *Handler) exportQueue(c *gin.Context) {
	var req ExportQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.queue.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if len(state.Tracks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "queue is empty"})
		return
	}

	accessToken := c.GetString("access_token")
	profile, err := h.client.GetUser(c.Request.Context(), accessToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	playlist, err := h.client.CreatePlaylist(c.Request.Context(), accessToken, profile.ID, req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	trackIDs := make([]string, len(state.Tracks))
	for i, t := range state.Tracks {
		trackIDs[i] = t.SpotifyTrackID
	}

	if err := h.client.AddTracksToPlaylist(c.Request.Context(), accessToken, playlist.ID, trackIDs); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"playlist_id":  playlist.ID,
		"playlist_url": playlist.ExternalURLs.Spotify,
		"track_count":  len(trackIDs),
	})
}
