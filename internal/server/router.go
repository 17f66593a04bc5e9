package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notewall/backend/internal/auth"
	"github.com/notewall/backend/internal/notes"
	"github.com/notewall/backend/internal/users"
)

const (
	identityContextKey = "notewall_identity"
	noteContextKey     = "notewall_note"
)

var (
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingNotesService     = errors.New("notes service dependency required")
	errMissingSessionIssuer    = errors.New("session issuer dependency required")
	errMissingSessionValidator = errors.New("session validator dependency required")
)

// SessionIssuer mints a session token for an authenticated username.
type SessionIssuer interface {
	Issue(username string) (string, int64, error)
}

// SessionValidator resolves the session identity carried by a request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (string, error)
	CookieName() string
}

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	UsersService     *users.Service
	NotesService     *notes.Service
	SessionIssuer    SessionIssuer
	SessionValidator SessionValidator
	Logger           *zap.Logger
}

// NewHTTPHandler wires the route table from the dependencies.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.SessionIssuer == nil {
		return nil, errMissingSessionIssuer
	}
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.SetHTMLTemplate(pageTemplates())

	handler := &httpHandler{
		usersService: deps.UsersService,
		notesService: deps.NotesService,
		sessions:     deps.SessionIssuer,
		validator:    deps.SessionValidator,
		logger:       logger,
	}

	router.GET("/", handler.handleHome)
	router.GET("/healthz", handler.handleHealth)
	router.GET("/register", handler.handleRegisterForm)
	router.POST("/register", handler.handleRegister)
	router.GET("/login", handler.handleLoginForm)
	router.POST("/login", handler.handleLogin)
	router.GET("/logout", handler.handleLogout)

	userRoutes := router.Group("/users/:username")
	userRoutes.Use(handler.requireUserOwner)
	userRoutes.GET("", handler.handleUserPage)
	userRoutes.GET("/delete", handler.handleDeleteUserForm)
	userRoutes.POST("/delete", handler.handleDeleteUser)
	userRoutes.GET("/notes/add", handler.handleAddNoteForm)
	userRoutes.POST("/notes/add", handler.handleAddNote)

	noteRoutes := router.Group("/notes/:note_id")
	noteRoutes.Use(handler.requireNoteOwner)
	noteRoutes.GET("/update", handler.handleUpdateNoteForm)
	noteRoutes.POST("/update", handler.handleUpdateNote)
	noteRoutes.GET("/delete", handler.handleDeleteNoteForm)
	noteRoutes.POST("/delete", handler.handleDeleteNote)

	return router, nil
}

type httpHandler struct {
	usersService *users.Service
	notesService *notes.Service
	sessions     SessionIssuer
	validator    SessionValidator
	logger       *zap.Logger
}

// sessionIdentity resolves the caller's identity from the session cookie.
// A session naming a user that no longer exists counts as anonymous, so a
// stale cookie for a deleted account grants nothing.
func (h *httpHandler) sessionIdentity(c *gin.Context) string {
	identity, err := h.validator.ValidateRequest(c.Request)
	if err != nil || identity == "" {
		return ""
	}
	if _, err := h.usersService.Get(c.Request.Context(), identity); err != nil {
		if !errors.Is(err, users.ErrUserNotFound) {
			h.logger.Error("session user lookup failed", zap.Error(err))
		}
		return ""
	}
	return identity
}

// requireUserOwner admits only the session identity matching the username
// in the path.
func (h *httpHandler) requireUserOwner(c *gin.Context) {
	username, err := users.NewUsername(c.Param("username"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	h.enforceOwner(c, username.String())
}

// requireNoteOwner admits only the session identity matching the owner of
// the note in the path. The loaded note is stashed in the request context
// for the handler.
func (h *httpHandler) requireNoteOwner(c *gin.Context) {
	identity := h.sessionIdentity(c)
	if identity == "" {
		h.denyAnonymous(c)
		return
	}

	noteID, err := notes.NewNoteID(c.Param("note_id"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	note, err := h.notesService.Get(c.Request.Context(), noteID)
	if errors.Is(err, notes.ErrNoteNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("note lookup failed", zap.Error(err), zap.String("note_id", noteID.String()))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if auth.Authorize(identity, note.Owner) != auth.DecisionAllowed {
		h.denyNotOwner(c)
		return
	}

	c.Set(identityContextKey, identity)
	c.Set(noteContextKey, note)
	c.Next()
}

func (h *httpHandler) enforceOwner(c *gin.Context, resourceOwner string) {
	identity := h.sessionIdentity(c)
	switch auth.Authorize(identity, resourceOwner) {
	case auth.DecisionAnonymous:
		h.denyAnonymous(c)
	case auth.DecisionDeniedNotOwner:
		h.denyNotOwner(c)
	default:
		c.Set(identityContextKey, identity)
		c.Next()
	}
}

func (h *httpHandler) denyAnonymous(c *gin.Context) {
	setFlash(c, "You must be logged in to view!")
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}

func (h *httpHandler) denyNotOwner(c *gin.Context) {
	setFlash(c, "You do not have access to that page.")
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}

// contextNote returns the note stashed by requireNoteOwner.
func contextNote(c *gin.Context) *notes.Note {
	value, ok := c.Get(noteContextKey)
	if !ok {
		return nil
	}
	note, ok := value.(*notes.Note)
	if !ok {
		return nil
	}
	return note
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
