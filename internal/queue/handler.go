package queue

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crowdqueue/backend/pkg/models"
)

// maxBulkRequest caps how many tracks one bulk call may carry. It guards the
// request body, not queue occupancy; the queue's own ceiling is Service
// capacity.
const maxBulkRequest = 10000

// HistoryLister serves the play-history view.
type HistoryLister interface {
	ListPlayedTracks(limit int) ([]models.PlayedTrack, error)
}

type Handler struct {
	service *Service
	history HistoryLister
}

func NewHandler(service *Service, history HistoryLister) *Handler {
	return &Handler{service: service, history: history}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	q := r.Group("/queue")
	{
		q.GET("", h.getQueue)
		q.DELETE("", h.clearQueue)
		q.POST("/tracks", h.addTrack)
		q.PUT("/tracks", h.addTracks)
		q.DELETE("/tracks/:spotifyTrackId", h.removeTrack)
		q.POST("/tracks/remove", h.removeTracks)
		q.POST("/tracks/:spotifyTrackId/vote", h.upvoteTrack)
	}

	if h.history != nil {
		r.GET("/history", h.getHistory)
	}
}

func (h *Handler) getQueue(c *gin.Context) {
	since := c.Query("since")
	if since == "" {
		state, err := h.service.Get(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
		return
	}

	cursor, err := strconv.ParseInt(since, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an epoch-milliseconds integer"})
		return
	}

	state, err := h.service.GetIfUpdated(c.Request.Context(), cursor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if state == nil {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, state)
}

type AddTrackRequest struct {
	SpotifyTrackID string `json:"spotify_track_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Artists        string `json:"artists"`
	AlbumName      string `json:"album_name"`
	AlbumArt       string `json:"album_art"`
	DurationMS     int    `json:"duration_ms"`
}

func (r *AddTrackRequest) toInput(addedBy string) models.TrackInput {
	return models.TrackInput{
		SpotifyTrackID: r.SpotifyTrackID,
		Name:           r.Name,
		Artists:        r.Artists,
		AlbumName:      r.AlbumName,
		AlbumArt:       r.AlbumArt,
		DurationMS:     r.DurationMS,
		AddedBy:        addedBy,
	}
}

func (h *Handler) addTrack(c *gin.Context) {
	var req AddTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	track, err := h.service.Add(c.Request.Context(), req.toInput(c.GetString("user_id")))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, track)
}

type AddTracksRequest struct {
	Tracks     []AddTrackRequest `json:"tracks" binding:"required"`
	ReplaceAll bool              `json:"replace_all"`
}

func (h *Handler) addTracks(c *gin.Context) {
	var req AddTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Tracks) > maxBulkRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many tracks in one request"})
		return
	}

	addedBy := c.GetString("user_id")
	inputs := make([]models.TrackInput, len(req.Tracks))
	for i, t := range req.Tracks {
		inputs[i] = t.toInput(addedBy)
	}

	admitted, err := h.service.AddBulk(c.Request.Context(), inputs, req.ReplaceAll)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"admitted": admitted})
}

func (h *Handler) removeTrack(c *gin.Context) {
	spotifyTrackID := c.Param("spotifyTrackId")
	if err := h.service.Remove(c.Request.Context(), spotifyTrackID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

type RemoveTracksRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *Handler) removeTracks(c *gin.Context) {
	var req RemoveTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.service.RemoveByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": count})
}

func (h *Handler) upvoteTrack(c *gin.Context) {
	spotifyTrackID := c.Param("spotifyTrackId")
	track, err := h.service.Upvote(c.Request.Context(), spotifyTrackID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, track)
}

func (h *Handler) clearQueue(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) getHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	tracks, err := h.history.ListPlayedTracks(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// writeError maps the service's error kinds onto distinct status codes so
// callers can tell bad input, business-rule rejections, and infrastructure
// faults apart.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicateTrack), errors.Is(err, ErrQueueFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrTrackNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
