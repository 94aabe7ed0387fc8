package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userhub/internal/domain"
	"userhub/internal/service"
	"userhub/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	auth      service.AuthService
	snapshots service.SnapshotService
	topics    service.TopicService
	catalog   service.CatalogService
	reports   service.ReportService
	archive   storage.Service
	bucket    string
	logger    *logrus.Logger
	origins   []string
}

func NewHandler(
	users service.UserService,
	auth service.AuthService,
	snapshots service.SnapshotService,
	topics service.TopicService,
	catalog service.CatalogService,
	reports service.ReportService,
	archive storage.Service,
	bucket string,
	logger *logrus.Logger,
	origins []string,
) *Handler {
	return &Handler{
		users:     users,
		auth:      auth,
		snapshots: snapshots,
		topics:    topics,
		catalog:   catalog,
		reports:   reports,
		archive:   archive,
		bucket:    bucket,
		logger:    logger,
		origins:   origins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware(h.origins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", h.createUser)
			users.GET("", h.listUsers)
			users.GET("/:id", h.getUser)
			users.PUT("/:id", h.updateUser)
			users.DELETE("/:id", h.deleteUser)
			users.PATCH("/:id/activate", h.activateUser)
			users.PATCH("/:id/deactivate", h.deactivateUser)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.login)
			auth.POST("/logout", h.logout)
			auth.GET("/me", h.me)
		}

		snapshots := api.Group("/snapshots")
		{
			snapshots.POST("/upload", h.uploadSnapshot)
			snapshots.POST("/:id/process", h.processSnapshot)
			snapshots.GET("", h.listSnapshots)
			snapshots.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "snapshot reports"})
			})
			snapshots.GET("/:id", h.getSnapshot)
		}

		api.POST("/components", h.createComponent)
		api.GET("/components", h.listComponents)
		api.POST("/interface-types", h.createInterfaceType)
		api.GET("/interface-types", h.listInterfaceTypes)
		api.POST("/interfaces", h.createInterface)
		api.GET("/interfaces", h.listInterfaces)

		api.GET("/topics", h.listTopics)
		api.GET("/topics/:id", h.getTopic)
		api.GET("/topics/:id/history", h.listTopicHistory)

		api.POST("/reports", h.generateReport)
		api.GET("/reports", h.listReports)
		api.GET("/reports/:id", h.getReport)
		api.GET("/reports/:id/items", h.listReportItems)

		api.POST("/ids", h.nextAvailableID)

		api.GET("/archive/objects", h.listArchiveObjects)
		api.DELETE("/archive/objects", h.deleteArchiveObjects)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request completed")
	}
}

// writeError maps service errors to HTTP status codes with a FastAPI style
// {"detail": ...} body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": msg})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return skip, limit
}

type createUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Active *bool   `json:"is_active"`
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Active    bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	skip, limit := pagination(c)

	users, err := h.users.List(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := UserListResponse{
		Users: make([]UserResponse, len(users)),
		Total: len(users),
		Skip:  skip,
		Limit: limit,
	}
	for i := range users {
		resp.Users[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, service.UserUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Active: req.Active,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user " + strconv.FormatInt(id, 10) + " deleted successfully"})
}

func (h *Handler) activateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.Activate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deactivateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.Deactivate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	token, expiresAt, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) logout(c *gin.Context) {
	// tokens are stateless, logout is client side
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

func (h *Handler) me(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
		return
	}

	claims, err := h.auth.Verify(strings.TrimSpace(token))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"username": claims.Subject}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
