package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-console/internal/usecase"
)

type Controller interface {
	Health(c echo.Context) error

	OpenChat(c echo.Context) error
	CloseChat(c echo.Context) error
	GetTimeline(c echo.Context) error
	LoadOlderMessages(c echo.Context) error
	SendMessage(c echo.Context) error
	ReactToMessage(c echo.Context) error

	ListOrganizations(c echo.Context) error
	CreateOrganization(c echo.Context) error
	GetOrganization(c echo.Context) error
	UpdateOrganization(c echo.Context) error
	DeleteOrganization(c echo.Context) error
	AddChats(c echo.Context) error
	RemoveChat(c echo.Context) error
	GetOrganizationMedia(c echo.Context) error
}

type handler struct {
	timeline   *usecase.TimelineUsecase
	media      *usecase.MediaUsecase
	membership *usecase.MembershipUsecase
	orgRepo    mongodb.OrganizationRepository
}

func NewHandler(
	timeline *usecase.TimelineUsecase,
	media *usecase.MediaUsecase,
	membership *usecase.MembershipUsecase,
	orgRepo mongodb.OrganizationRepository,
) Controller {
	return &handler{
		timeline:   timeline,
		media:      media,
		membership: membership,
		orgRepo:    orgRepo,
	}
}

func (h *handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// httpError maps the core error taxonomy onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	}
	if errors.Is(err, models.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	var fetchErr *models.FetchError
	if errors.As(err, &fetchErr) {
		return echo.NewHTTPError(http.StatusBadGateway, fetchErr.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
