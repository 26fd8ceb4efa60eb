package whapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/pkg/util"
)

// ListOptions bounds a history page. Limit defaults to the configured page
// size; Before is a message id cursor for older pages.
type ListOptions struct {
	Limit  int
	Before string
}

type Client interface {
	ListMessages(ctx context.Context, chatID string, opts ListOptions) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID string, params models.SendMessageParams) (*models.Message, error)
	ReactToMessage(ctx context.Context, chatID, messageID, emoji string) error
	ListMedia(ctx context.Context, chatID string) ([]models.Attachment, error)
	GetChatName(ctx context.Context, chatID string) (string, error)
}

type client struct {
	http       *resty.Client
	pageLimit  int
	mediaLimit int
	metrics    *prometheus.HistogramVec
}

func NewClient(conf *config.Config) (Client, error) {
	cfg := conf.Gateway

	metrics, err := util.GetHistogramVec("gateway_requests", "op", "status")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}

	http := util.NewRestyClient(cfg.Timeout).
		SetBaseURL(cfg.BaseURL)
	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}

	return &client{
		http:       http,
		pageLimit:  cfg.PageLimit,
		mediaLimit: cfg.MediaLimit,
		metrics:    metrics,
	}, nil
}

func (c *client) ListMessages(ctx context.Context, chatID string, opts ListOptions) ([]models.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = c.pageLimit
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit))
	if opts.Before != "" {
		req.SetQueryParam("before", opts.Before)
	}

	resp, err := req.Get("/messages/list/" + url.PathEscape(chatID))
	c.observe("list_messages", resp, err, time.Now())
	if err != nil {
		return nil, &models.FetchError{Op: "list messages", ChatID: chatID, Err: err}
	}
	if resp.IsError() {
		return nil, &models.FetchError{Op: "list messages", ChatID: chatID, Err: statusError(resp)}
	}

	return decodeMessageList(resp.Body(), chatID)
}

func (c *client) SendMessage(ctx context.Context, chatID string, params models.SendMessageParams) (*models.Message, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		Post("/messages/" + url.PathEscape(chatID))
	c.observe("send_message", resp, err, time.Now())
	if err != nil {
		return nil, &models.FetchError{Op: "send message", ChatID: chatID, Err: err}
	}
	if resp.IsError() {
		return nil, &models.FetchError{Op: "send message", ChatID: chatID, Err: statusError(resp)}
	}

	msg := normalizeMessage(gjson.ParseBytes(resp.Body()), chatID)
	if msg.ID == "" {
		return nil, &models.FetchError{Op: "send message", ChatID: chatID, Err: fmt.Errorf("gateway returned no message id")}
	}
	return &msg, nil
}

func (c *client) ReactToMessage(ctx context.Context, chatID, messageID, emoji string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"emoji": emoji}).
		Post("/messages/" + url.PathEscape(chatID) + "/react/" + url.PathEscape(messageID))
	c.observe("react", resp, err, time.Now())
	if err != nil {
		return &models.FetchError{Op: "react to message", ChatID: chatID, Err: err}
	}
	if resp.IsError() {
		return &models.FetchError{Op: "react to message", ChatID: chatID, Err: statusError(resp)}
	}
	return nil
}

// ListMedia returns the chat's recent media payloads already normalized into
// the Attachment shape. The gateway nests media metadata differently per
// source system, so normalization happens here at the client boundary.
func (c *client) ListMedia(ctx context.Context, chatID string) ([]models.Attachment, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(c.mediaLimit)).
		Get("/messages/list/" + url.PathEscape(chatID))
	c.observe("list_media", resp, err, time.Now())
	if err != nil {
		return nil, &models.FetchError{Op: "list media", ChatID: chatID, Err: err}
	}
	if resp.IsError() {
		return nil, &models.FetchError{Op: "list media", ChatID: chatID, Err: statusError(resp)}
	}

	return decodeAttachmentList(resp.Body(), chatID), nil
}

func (c *client) GetChatName(ctx context.Context, chatID string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/chats/" + url.PathEscape(chatID))
	c.observe("get_chat", resp, err, time.Now())
	if err != nil {
		return "", &models.FetchError{Op: "get chat", ChatID: chatID, Err: err}
	}
	if resp.IsError() {
		return "", &models.FetchError{Op: "get chat", ChatID: chatID, Err: statusError(resp)}
	}

	name := gjson.GetBytes(resp.Body(), "name").String()
	if name == "" {
		name = models.ChatDisplayName(chatID)
	}
	return name, nil
}

func (c *client) observe(op string, resp *resty.Response, err error, start time.Time) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	c.metrics.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func statusError(resp *resty.Response) error {
	return fmt.Errorf("gateway returned status %d", resp.StatusCode())
}
