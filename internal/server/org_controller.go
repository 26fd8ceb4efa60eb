package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

func orgIDParam(c echo.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "invalid organization ID")
	}
	return id, nil
}

func (h *handler) ListOrganizations(c echo.Context) error {
	orgs, err := h.orgRepo.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if orgs == nil {
		orgs = []*models.Organization{}
	}
	return c.JSON(http.StatusOK, orgs)
}

type organizationRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	ChatIDs     []string `json:"chat_ids" validate:"omitempty,dive,chatid"`
}

func (h *handler) CreateOrganization(c echo.Context) error {
	var req organizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	org := &models.Organization{
		Name:        req.Name,
		Description: req.Description,
		ChatIDs:     req.ChatIDs,
	}
	if err := h.orgRepo.Create(c.Request().Context(), org); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, org)
}

func (h *handler) GetOrganization(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}

	org, err := h.orgRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

func (h *handler) UpdateOrganization(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}

	var req organizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	org, err := h.orgRepo.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	org.Name = req.Name
	org.Description = req.Description
	if err := h.orgRepo.Update(ctx, org); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

func (h *handler) DeleteOrganization(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}

	if err := h.orgRepo.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type addChatsRequest struct {
	ChatIDs []string `json:"chat_ids" validate:"required,min=1,dive,chatid"`
}

func (h *handler) AddChats(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}

	var req addChatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.membership.AddChats(c.Request().Context(), id, req.ChatIDs)
	if err != nil {
		return httpError(err)
	}
	status := http.StatusOK
	if len(result.FailedChatIDs) > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, result)
}

func (h *handler) RemoveChat(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}
	chatID := c.Param("chatId")

	org, err := h.membership.RemoveChat(c.Request().Context(), id, chatID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

func (h *handler) GetOrganizationMedia(c echo.Context) error {
	id, err := orgIDParam(c)
	if err != nil {
		return err
	}

	aggregate, err := h.media.Aggregate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	chatFilter := c.QueryParam("chat_id")
	typeFilter := models.MessageType(c.QueryParam("type"))
	items := h.media.FilterMedia(aggregate, chatFilter, typeFilter)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"org_id":          aggregate.OrgID,
		"items":           items,
		"failed_chat_ids": aggregate.FailedChatIDs,
	})
}
