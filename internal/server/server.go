package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	pkgmdw "github.com/nguyentranbao-ct/chat-console/internal/server/middleware"
)

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	handler Controller,
) {
	e := echo.New()
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = errorHandler()

	logConfig := pkgmdw.LogRequestConfig{
		Logger: logger.MustNamed("http"),
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
		KeyAndValues: func(c echo.Context) []any {
			args := make([]any, 0, 4)
			if chatID := c.Param("chatId"); chatID != "" {
				args = append(args, "chat_id", chatID)
			}
			if orgID := c.Param("id"); orgID != "" {
				args = append(args, "org_id", orgID)
			}
			return args
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1")

	api.POST("/chats/:chatId/open", handler.OpenChat)
	api.POST("/chats/:chatId/close", handler.CloseChat)
	api.GET("/chats/:chatId/timeline", handler.GetTimeline)
	api.GET("/chats/:chatId/messages", handler.LoadOlderMessages)
	api.POST("/chats/:chatId/messages", handler.SendMessage)
	api.POST("/chats/:chatId/messages/:messageId/react", handler.ReactToMessage)

	api.GET("/organizations", handler.ListOrganizations)
	api.POST("/organizations", handler.CreateOrganization)
	api.GET("/organizations/:id", handler.GetOrganization)
	api.PUT("/organizations/:id", handler.UpdateOrganization)
	api.DELETE("/organizations/:id", handler.DeleteOrganization)
	api.POST("/organizations/:id/chats", handler.AddChats)
	api.DELETE("/organizations/:id/chats/:chatId", handler.RemoveChat)
	api.GET("/organizations/:id/media", handler.GetOrganizationMedia)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
