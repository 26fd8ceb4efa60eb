package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/chat-console/internal/channel"
	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/kafka"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/transcribe"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/whapi"
	"github.com/nguyentranbao-ct/chat-console/internal/server"
	"github.com/nguyentranbao-ct/chat-console/internal/usecase"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMongoDB,

			server.NewHandler,

			usecase.NewTimelineUsecase,
			usecase.NewMediaUsecase,
			usecase.NewMembershipUsecase,

			mongodb.NewOrganizationRepository,

			whapi.NewClient,
			transcribe.NewClient,
			channel.NewWebsocketChannel,
			kafka.NewConsumer,
		),
		fx.Supply(conf),
		fx.Invoke(StartEventChannel),
		fx.Invoke(StartTimeline),
		fx.Invoke(funcs...),
	)
}
