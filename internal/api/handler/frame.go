package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
	"github.com/hszk-dev/framegrab/internal/usecase"
)

// Request/Response types

type GetFrameRequest struct {
	URL       string `json:"url,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	Timestamp *int   `json:"timestamp,omitempty"`
	Hours     int    `json:"hours,omitempty"`
	Minutes   int    `json:"minutes,omitempty"`
	Seconds   int    `json:"seconds,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

type ThumbnailsResponse struct {
	VideoID    string              `json:"video_id"`
	Thumbnails []ThumbnailResponse `json:"thumbnails"`
}

type ThumbnailResponse struct {
	TimestampSeconds int    `json:"timestamp_seconds"`
	ContentType      string `json:"content_type"`
	Image            string `json:"image"` // base64-encoded
}

// FrameHandler handles frame extraction HTTP requests.
type FrameHandler struct {
	svc usecase.FrameService
}

// NewFrameHandler creates a new FrameHandler.
func NewFrameHandler(svc usecase.FrameService) *FrameHandler {
	return &FrameHandler{svc: svc}
}

// Create handles POST /v1/frames
func (h *FrameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req GetFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	h.serveFrame(w, r, req)
}

// Get handles GET /v1/frames
func (h *FrameHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := GetFrameRequest{
		URL:     q.Get("url"),
		VideoID: q.Get("video_id"),
		Quality: q.Get("quality"),
		Hours:   intParam(q.Get("hours")),
		Minutes: intParam(q.Get("minutes")),
		Seconds: intParam(q.Get("seconds")),
	}
	if raw := q.Get("timestamp"); raw != "" {
		ts, err := strconv.Atoi(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_timestamp", "Timestamp must be an integer")
			return
		}
		req.Timestamp = &ts
	}

	h.serveFrame(w, r, req)
}

// Thumbnails handles GET /v1/videos/{id}/thumbnails
func (h *FrameHandler) Thumbnails(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	if videoID == "" {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID is required")
		return
	}

	count := intParam(r.URL.Query().Get("count"))
	if count < 1 {
		count = 4
	}
	if count > 10 {
		count = 10
	}

	quality := model.Quality(r.URL.Query().Get("quality"))
	if quality == "" {
		quality = model.QualityMedium
	}
	if !quality.IsValid() {
		Error(w, http.StatusBadRequest, "invalid_quality", "Quality must be one of: ultra, high, medium, low")
		return
	}

	entries, err := h.svc.Thumbnails(r.Context(), videoID, count, quality)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := ThumbnailsResponse{
		VideoID:    videoID,
		Thumbnails: make([]ThumbnailResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Thumbnails = append(resp.Thumbnails, ThumbnailResponse{
			TimestampSeconds: e.Metadata.TimestampSeconds,
			ContentType:      e.Metadata.ContentType,
			Image:            base64.StdEncoding.EncodeToString(e.Image),
		})
	}

	JSON(w, http.StatusOK, resp)
}

// Stats handles GET /v1/cache/stats
func (h *FrameHandler) Stats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Stats())
}

func (h *FrameHandler) serveFrame(w http.ResponseWriter, r *http.Request, req GetFrameRequest) {
	videoID := req.VideoID
	timestamp := req.Timestamp
	if videoID == "" && req.URL != "" {
		videoID = model.ExtractVideoID(req.URL)
		if videoID == "" {
			Error(w, http.StatusBadRequest, "invalid_url", "Could not extract a video ID from the URL")
			return
		}
		if timestamp == nil && req.Hours == 0 && req.Minutes == 0 && req.Seconds == 0 {
			if ts := model.ExtractURLTimestamp(req.URL); ts > 0 {
				timestamp = &ts
			}
		}
	}

	quality := model.Quality(req.Quality)
	if quality == "" {
		quality = model.QualityMedium
	}

	frameReq, err := model.NewFrameRequest(videoID, timestamp, req.Hours, req.Minutes, req.Seconds, quality)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	entry, err := h.svc.GetFrame(r.Context(), frameReq)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", entry.Metadata.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Image)))
	w.Header().Set("X-Frame-Key", entry.Key)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Image)
}

func (h *FrameHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrEmptyVideoID):
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID cannot be empty")
	case errors.Is(err, model.ErrNegativeTimestamp):
		Error(w, http.StatusBadRequest, "invalid_timestamp", "Timestamp cannot be negative")
	case errors.Is(err, model.ErrConflictingTime):
		Error(w, http.StatusBadRequest, "conflicting_timestamp", "Timestamp and time components disagree")
	case errors.Is(err, model.ErrUnknownQuality):
		Error(w, http.StatusBadRequest, "invalid_quality", "Quality must be one of: ultra, high, medium, low")
	case errors.Is(err, model.ErrTimestampOutOfRange):
		Error(w, http.StatusBadRequest, "timestamp_out_of_range", "Timestamp exceeds the video duration")
	case errors.Is(err, repository.ErrVideoUnavailable):
		Error(w, http.StatusNotFound, "video_unavailable", "Video does not exist or cannot be accessed")
	case errors.Is(err, repository.ErrQualityUnavailable):
		Error(w, http.StatusNotFound, "quality_unavailable", "No stream matches the requested quality")
	case errors.Is(err, usecase.ErrWaitTimeout):
		Error(w, http.StatusGatewayTimeout, "extraction_timeout", "Timed out waiting for frame extraction")
	case errors.Is(err, repository.ErrExtractionFailed):
		Error(w, http.StatusBadGateway, "extraction_failed", "Frame extraction failed")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
