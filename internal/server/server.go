// Package server exposes the decode manager over HTTP. It owns request
// validation and payload shaping; all decode semantics live in the
// manager.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eleven-am/framed"
	"github.com/eleven-am/framed/internal/domain"
)

type Server struct {
	mgr         *framed.Manager
	uploadsRoot string
	log         zerolog.Logger
}

func New(mgr *framed.Manager, uploadsRoot string, log zerolog.Logger) *Server {
	return &Server{
		mgr:         mgr,
		uploadsRoot: uploadsRoot,
		log:         log.With().Str("component", "http").Logger(),
	}
}

// Router wires all routes onto a fresh gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)

	r.POST("/cameras", s.startCamera)
	r.GET("/cameras", s.listCameras)
	r.GET("/cameras/:id", s.getCamera)
	r.DELETE("/cameras/:id", s.stopCamera)
	r.GET("/cameras/:id/frame", s.latestFrame)

	r.POST("/upload", s.upload)
	r.GET("/hwaccel", s.hwaccel)
	r.POST("/video-info", s.videoInfo)
	r.POST("/snapshot", s.snapshot)
	r.POST("/record", s.record)

	return r
}

type startRequest struct {
	CameraID     string  `json:"camera_id" binding:"required"`
	Source       string  `json:"source" binding:"required"`
	FPS          float64 `json:"fps"`
	Acceleration string  `json:"acceleration"`
}

type statusResponse struct {
	CameraID     string    `json:"camera_id"`
	Status       string    `json:"status"`
	FrameCount   int       `json:"frame_count"`
	RestartCount int       `json:"restart_count"`
	LastError    string    `json:"last_error,omitempty"`
	Acceleration string    `json:"acceleration"`
	StartedAt    time.Time `json:"started_at"`
}

func toStatusResponse(st framed.Status) statusResponse {
	return statusResponse{
		CameraID:     st.CameraID,
		Status:       string(st.State),
		FrameCount:   st.FrameCount,
		RestartCount: st.RestartCount,
		LastError:    st.LastError,
		Acceleration: string(st.Acceleration),
		StartedAt:    st.StartedAt,
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) startCamera(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.FPS <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fps must be positive"})
		return
	}

	mode := framed.AccelMode(req.Acceleration)
	if req.Acceleration == "" {
		mode = framed.AccelAuto
	}

	if err := s.mgr.Start(c.Request.Context(), req.CameraID, req.Source, req.FPS, mode); err != nil {
		s.log.Error().Err(err).Str("camera_id", req.CameraID).Msg("start failed")
		c.JSON(startErrorCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "decode task started",
		"camera_id": req.CameraID,
	})
}

func startErrorCode(err error) int {
	var capErr *domain.CapabilityError
	if errors.As(err, &capErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) stopCamera(c *gin.Context) {
	id := c.Param("id")
	if err := s.mgr.Stop(id); err != nil {
		if errors.Is(err, framed.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "decode task stopped", "camera_id": id})
}

func (s *Server) getCamera(c *gin.Context) {
	status, err := s.mgr.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, framed.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(status))
}

func (s *Server) listCameras(c *gin.Context) {
	cameras := []statusResponse{}
	for status := range s.mgr.List() {
		cameras = append(cameras, toStatusResponse(status))
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras})
}

func (s *Server) latestFrame(c *gin.Context) {
	path, err := s.mgr.LatestFrame(c.Param("id"))
	if err != nil {
		if errors.Is(err, framed.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.File(path)
}

func (s *Server) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	if err := os.MkdirAll(s.uploadsRoot, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	dst := filepath.Join(s.uploadsRoot, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info().Str("path", dst).Int64("size", file.Size).Msg("video uploaded")
	c.JSON(http.StatusCreated, gin.H{"path": dst})
}

func (s *Server) hwaccel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"hardware_accelerations": s.mgr.Accelerations(c.Request.Context()),
	})
}

type sourceRequest struct {
	Source string `json:"source" binding:"required"`
}

func (s *Server) videoInfo(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := s.mgr.VideoInfo(c.Request.Context(), req.Source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": info})
}

type snapshotRequest struct {
	Source    string `json:"source" binding:"required"`
	Timestamp string `json:"timestamp" binding:"required"`
}

func (s *Server) snapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.outputPath("snapshot", ".jpg")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.mgr.Snapshot(c.Request.Context(), req.Source, req.Timestamp, out); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snapshot captured", "output": out})
}

type recordRequest struct {
	Source    string `json:"source" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	Duration  string `json:"duration" binding:"required"`
}

func (s *Server) record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.outputPath("clip", ".mp4")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.mgr.Record(c.Request.Context(), req.Source, req.StartTime, req.Duration, out); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recording successful", "output": out})
}

func (s *Server) outputPath(prefix, ext string) (string, error) {
	if err := os.MkdirAll(s.uploadsRoot, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(s.uploadsRoot, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)), nil
}
