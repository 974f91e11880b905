package server

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"playx/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server wires the HTTP handlers to the database and the public
// asset tree. One instance serves both the JSON API and the
// server-rendered pages.
type Server struct {
	db       *gorm.DB
	cfg      config.Config
	sessions *sessionStore

	uploadMu    sync.Mutex
	uploadLocks map[uint]*sync.Mutex
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	registerValidators()
	s := &Server{
		db:          conn,
		cfg:         cfg,
		sessions:    newSessionStore(conn, time.Duration(cfg.SessionTTLHours)*time.Hour),
		uploadLocks: make(map[uint]*sync.Mutex),
	}
	s.sweepStaging()
	return s
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.resolveSession())

	r.GET("/", s.handleHome)
	r.GET("/login", s.handleLoginView)
	r.GET("/register", s.handleRegisterView)
	r.GET("/developer", s.handleDeveloperView)
	r.GET("/play/:slug", s.handlePlayView)

	r.Static("/static", "./static")
	r.GET("/images/*filepath", servePublic(filepath.Join(s.cfg.PublicDir, "images")))
	r.GET("/games/*filepath", servePublic(filepath.Join(s.cfg.PublicDir, "games")))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
			auth.GET("/session", s.handleSession)
		}

		users := api.Group("/users")
		{
			users.GET("", requireAction(ActionManageUsers), s.handleListUsers)
			users.GET("/stats", requireAction(ActionManageUsers), s.handleUserStats)
			users.POST("", requireAction(ActionManageUsers), s.handleCreateUser)
			users.GET("/:id", requireAuth(), s.handleGetUser)
			users.PATCH("/:id", requireAuth(), s.handlePatchUser)
			users.DELETE("/:id", requireAuth(), s.handleDeleteUser)
			users.POST("/:id/ban", requireAction(ActionManageUsers), s.handleBanUser)
			users.POST("/:id/unban", requireAction(ActionManageUsers), s.handleUnbanUser)
		}

		games := api.Group("/games")
		{
			games.GET("", s.handleListGames)
			games.GET("/stats", requireAction(ActionPublishGames), s.handleGameStats)
			games.POST("", requireAction(ActionPublishGames), s.handleCreateGame)
			games.GET("/:slug", s.handleGetGame)
			games.PUT("/:slug", requireAction(ActionPublishGames), s.handleUpdateGame)
			games.DELETE("/:slug", requireAction(ActionPublishGames), s.handleDeleteGame)
			games.POST("/:slug", requireAction(ActionPublishGames), s.handleUploadVersion)
			games.DELETE("/versions/:id", requireAction(ActionPublishGames), s.handleDeleteVersion)
			games.GET("/:slug/scores", s.handleListScores)
			games.POST("/:slug/scores", requireAction(ActionSubmitScores), s.handleCreateScore)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/events", requireAction(ActionViewAuditLog), s.handleListEvents)
		}
	}

	return r
}

// servePublic serves files from root but refuses dotted path segments,
// keeping the upload staging area and similar hidden directories out
// of reach.
func servePublic(root string) gin.HandlerFunc {
	fs := http.FileServer(http.Dir(root))
	return func(c *gin.Context) {
		rel := c.Param("filepath")
		for _, segment := range strings.Split(rel, "/") {
			if strings.HasPrefix(segment, ".") && segment != "" {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.Request.URL.Path = rel
		fs.ServeHTTP(c.Writer, c.Request)
	}
}
