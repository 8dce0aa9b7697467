package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hoangnd/tokengate/internal/core/domain"
	"github.com/hoangnd/tokengate/internal/logger"
	logicv1 "github.com/hoangnd/tokengate/internal/logic/v1"
	"github.com/hoangnd/tokengate/middleware"
)

// Handler groups HTTP handlers for the auth API.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	auth *logicv1.AuthService
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes registers the public and protected routes on the engine.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	protected := r.Group("", h.RequireAuth())
	protected.GET("/user", h.CurrentUser)
	protected.POST("/logout", h.Logout)
}

// Register handles HTTP request for user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Msg("Registration payload invalid")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": bindingErrors(err)})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.auth.Register(ctx, req)
	if err != nil {
		span.RecordError(err)

		var ve *logicv1.ValidationError
		if errors.As(err, &ve) {
			log.Warn().Err(err).Msg("Registration rejected")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": ve.Fields})
			return
		}

		log.Error().Err(err).Msg("Registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Info().Int("user_id", user.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Msg("Login payload invalid")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": bindingErrors(err)})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Login(ctx, req)
	if err != nil {
		span.RecordError(err)

		if errors.Is(err, logicv1.ErrInvalidCredentials) {
			// Same body for unknown email and wrong password.
			log.Warn().Msg("Login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		log.Error().Err(err).Msg("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Info().Int("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"access_token": response.Token,
		"token_type":   "Bearer",
		"user":         response.User,
	})
}

// CurrentUser returns the user already resolved by the validation gate.
// No additional lookup.
func (h *Handler) CurrentUser(c *gin.Context) {
	user, ok := UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token missing"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes the caller's bearer token. The route sits behind the gate,
// but the header is re-read here as a defensive double-check.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token not provided"})
		return
	}

	if err := h.auth.Logout(ctx, token); err != nil {
		span.RecordError(err)

		if errors.Is(err, logicv1.ErrTokenInvalid) {
			// Already revoked between gate check and delete.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		log.Error().Err(err).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Info().Msg("Logout successful")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// bindingErrors flattens a gin binding error into a field → message map.
func bindingErrors(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["body"] = "The request body must be valid JSON."
		return fields
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("The %s field is required.", field)
		case "email":
			fields[field] = fmt.Sprintf("The %s must be a valid email address.", field)
		case "min":
			fields[field] = fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		default:
			fields[field] = fmt.Sprintf("The %s field is invalid.", field)
		}
	}

	return fields
}
