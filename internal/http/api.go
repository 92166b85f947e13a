package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"student-portal/internal/domain"
	"student-portal/internal/service"
)

const (
	msgNoData          = "No data provided"
	msgInvalidBody     = "Invalid request body"
	msgInvalidCreds    = "Invalid credentials"
	msgLoginOK         = "Login successful"
	msgRegisterOK      = "Registration successful"
	msgLoginFailed     = "An error occurred during login"
	msgRegisterFailed  = "An error occurred during registration"
	msgRouteNotFound   = "Not found"
	healthResponseBody = "ok"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	logger    logrus.FieldLogger
	staticDir string
}

// NewHandler builds a Handler. When staticDir is non-empty, unknown non-API
// paths are served from that directory.
func NewHandler(users service.UserService, logger logrus.FieldLogger, staticDir string) *Handler {
	return &Handler{
		users:     users,
		logger:    logger,
		staticDir: staticDir,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/login", h.login)
		api.POST("/register", h.register)
		api.POST("/check-availability", h.checkAvailability)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": healthResponseBody})
		})
	}

	router.NoRoute(h.notFound())
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type availabilityRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type authResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	User    *domain.PublicUser `json:"user,omitempty"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindBody(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeError(c, err, "login", msgLoginFailed)
		return
	}

	public := user.Public()
	c.JSON(http.StatusOK, authResponse{Success: true, Message: msgLoginOK, User: &public})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindBody(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		h.writeError(c, err, "registration", msgRegisterFailed)
		return
	}

	public := user.Public()
	c.JSON(http.StatusOK, authResponse{Success: true, Message: msgRegisterOK, User: &public})
}

// checkAvailability always answers 200; any failure reads as unavailable.
func (h *Handler) checkAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, availabilityResponse{Available: false})
		return
	}

	available, err := h.users.CheckAvailability(c.Request.Context(), req.Field, req.Value)
	if err != nil {
		h.logger.WithError(err).WithField("field", req.Field).Warn("availability check failed")
		available = false
	}
	c.JSON(http.StatusOK, availabilityResponse{Available: available})
}

// bindBody decodes the JSON body into dst, answering 400 itself on failure.
func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		msg := msgInvalidBody
		if errors.Is(err, io.EOF) {
			msg = msgNoData
		}
		c.JSON(http.StatusBadRequest, authResponse{Success: false, Message: msg})
		return false
	}
	return true
}

// writeError maps a service outcome to its status code. Anything that is not
// a client-facing outcome is logged and reported with internalMsg only.
func (h *Handler) writeError(c *gin.Context, err error, op, internalMsg string) {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, authResponse{Success: false, Message: verr.Message})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, authResponse{Success: false, Message: cerr.Message})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, authResponse{Success: false, Message: msgInvalidCreds})
	default:
		h.logger.WithError(err).WithField("op", op).Error("request failed")
		c.JSON(http.StatusInternalServerError, authResponse{Success: false, Message: internalMsg})
	}
}

func (h *Handler) notFound() gin.HandlerFunc {
	var files http.Handler
	if h.staticDir != "" {
		files = http.FileServer(gin.Dir(h.staticDir, false))
	}

	return func(c *gin.Context) {
		if files == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgRouteNotFound})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
