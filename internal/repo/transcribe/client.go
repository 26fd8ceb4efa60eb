package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/pkg/util"
)

// Client talks to the document-analysis pipeline. Analysis can take
// arbitrarily long; callers invoke Analyze only after the pipeline has
// signalled completion for the attachment, so polling here is a short
// read-until-ready loop rather than a job wait.
type Client interface {
	Analyze(ctx context.Context, attachmentKey string) (*models.TranscriptionResult, error)
}

type client struct {
	http       *resty.Client
	maxPolls   uint
	newBackoff func() backoff.BackOff
}

func NewClient(conf *config.Config) Client {
	cfg := conf.Transcribe

	http := util.NewRestyClient(cfg.Timeout).
		SetBaseURL(cfg.BaseURL)

	return &client{
		http:     http,
		maxPolls: cfg.MaxPolls,
		newBackoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = cfg.PollInterval
			return bo
		},
	}
}

var errResultPending = fmt.Errorf("transcription result pending")

func (c *client) Analyze(ctx context.Context, attachmentKey string) (*models.TranscriptionResult, error) {
	var result models.TranscriptionResult

	fetch := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&result).
			Get("/documents/" + url.PathEscape(attachmentKey))
		if err != nil {
			return backoff.Permanent(err)
		}
		switch resp.StatusCode() {
		case http.StatusOK:
			return nil
		case http.StatusAccepted, http.StatusNotFound:
			// still processing
			return errResultPending
		default:
			return backoff.Permanent(fmt.Errorf("pipeline returned status %d", resp.StatusCode()))
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackoff(), uint64(c.maxPolls)), ctx)
	if err := backoff.Retry(fetch, bo); err != nil {
		return nil, &models.FetchError{Op: "analyze attachment", Err: fmt.Errorf("%s: %w", attachmentKey, err)}
	}

	result.AttachmentKey = attachmentKey
	return &result, nil
}
