package mediaworker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

// HTTPFetcher downloads job media over plain HTTP into a local directory,
// one file per message id. 4xx responses other than 408/429 are permanent:
// the provider will not serve that URL later either.
type HTTPFetcher struct {
	log    *logger.Logger
	client *http.Client
	dir    string
}

func NewHTTPFetcher(baseLog *logger.Logger, dir string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		log:    baseLog.With("component", "HTTPFetcher"),
		client: &http.Client{Timeout: timeout},
		dir:    dir,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, job *types.InboundMediaJob) error {
	if job.MediaURL == "" {
		return fmt.Errorf("job %s has no media url: %w", job.ID, ErrPermanent)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.MediaURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %v: %w", err, ErrPermanent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("fetch media: status %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("fetch media: status %d: %w", resp.StatusCode, ErrPermanent)
	default:
		return fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("ensure media dir: %w", err)
	}
	dest := filepath.Join(f.dir, job.MessageID.String())
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write media file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close media file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("finalize media file: %w", err)
	}
	f.log.Debug("Media stored", "job_id", job.ID, "message_id", job.MessageID, "path", dest)
	return nil
}
