package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

func (h *handler) OpenChat(c echo.Context) error {
	chatID := c.Param("chatId")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id required")
	}

	timeline, err := h.timeline.Open(c.Request().Context(), chatID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, timeline)
}

func (h *handler) CloseChat(c echo.Context) error {
	chatID := c.Param("chatId")
	h.timeline.Close(c.Request().Context(), chatID)
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) GetTimeline(c echo.Context) error {
	chatID := c.Param("chatId")
	if h.timeline.ActiveChatID() != chatID {
		return echo.NewHTTPError(http.StatusConflict, "chat is not open")
	}

	timeline, err := h.timeline.Snapshot()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, timeline)
}

func (h *handler) LoadOlderMessages(c echo.Context) error {
	chatID := c.Param("chatId")
	if h.timeline.ActiveChatID() != chatID {
		return echo.NewHTTPError(http.StatusConflict, "chat is not open")
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	timeline, err := h.timeline.LoadOlder(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, timeline)
}

func (h *handler) SendMessage(c echo.Context) error {
	chatID := c.Param("chatId")
	if h.timeline.ActiveChatID() != chatID {
		return echo.NewHTTPError(http.StatusConflict, "chat is not open")
	}

	var params models.SendMessageParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, err := h.timeline.SendMessage(c.Request().Context(), params)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (h *handler) ReactToMessage(c echo.Context) error {
	chatID := c.Param("chatId")
	messageID := c.Param("messageId")
	if h.timeline.ActiveChatID() != chatID {
		return echo.NewHTTPError(http.StatusConflict, "chat is not open")
	}

	var req reactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.timeline.React(c.Request().Context(), messageID, req.Emoji); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
