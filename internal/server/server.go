package server

import (
	"net/http"
	"time"

	"poker-canvas/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	store *Store
	db    *gorm.DB
	ws    *wsHub
	cfg   config.Config
	now   func() time.Time
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	registerValidators()
	return &Server{
		store: NewStore(),
		db:    conn,
		ws:    newWSHub(),
		cfg:   cfg,
		now:   timeNowUTC,
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:roomID", s.handleGetRoom)
	api.POST("/rooms/:roomID/join", s.handleJoinRoom)
	api.POST("/rooms/:roomID/users/:userID", s.handleEditUser)
	api.DELETE("/rooms/:roomID/users/:userID", s.handleLeaveRoom)
	api.POST("/rooms/:roomID/votes", s.handlePickCard)
	api.DELETE("/rooms/:roomID/votes/:userID", s.handleRemoveCard)
	api.POST("/rooms/:roomID/show", s.handleShowCards)
	api.POST("/rooms/:roomID/reset", s.handleResetGame)
	api.GET("/rooms/:roomID/analysis", s.handleAnalysis)
	api.GET("/rooms/:roomID/nodes", s.handleGetNodes)
	api.POST("/rooms/:roomID/nodes/:nodeID/position", s.handleNodePosition)
	api.POST("/rooms/:roomID/nodes/:nodeID/lock", s.handleNodeLock)
	api.POST("/rooms/:roomID/timer/:action", s.handleTimerAction)
	api.GET("/rooms/:roomID/timer", s.handleTimerState)
	api.POST("/rooms/:roomID/viewport", s.handleViewport)
	api.GET("/rooms/:roomID/viewports", s.handleGetViewports)
	api.POST("/rooms/:roomID/presence", s.handlePresence)
	api.GET("/rooms/:roomID/presence", s.handleGetPresence)
	api.POST("/maintenance/sweep", s.handleSweep)
	api.POST("/maintenance/orphans", s.handleOrphans)

	router.GET("/ws/rooms/:roomID", s.handleRoomWebsocket)
	return router
}
