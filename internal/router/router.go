package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"capsulevault/internal/auth"
	apperrors "capsulevault/internal/errors"
	"capsulevault/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	authHandler *handler.AuthHandler,
	capsuleHandler *handler.CapsuleHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Secured routes (require a live, non-revoked JWT)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, apperrors.ErrInvalidToken
			}
			if claims.ID != "" {
				revoked, _ := tokenStore.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if revoked {
					return nil, apperrors.ErrInvalidToken
				}
			}
			return claims, nil
		},
	}))

	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/logout", authHandler.Logout)

	// Capsule routes
	secured.POST("/capsules", capsuleHandler.Create)
	secured.GET("/capsules", capsuleHandler.List)
	secured.GET("/capsules/:id", capsuleHandler.Get)
	secured.PUT("/capsules/:id", capsuleHandler.Update)
	secured.DELETE("/capsules/:id", capsuleHandler.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
