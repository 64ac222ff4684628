package geekmagic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smeegoan/Immich2GeekMagic/internal/config"
)

// The device's file listing is served either as JSON or as a bare HTML page
// with anchors of the form href='/image//name.jpg'.
var fileListHrefRe = regexp.MustCompile(`href='/image//([^']+)'`)

// Client pushes images to a GeekMagic display. The device is frequently
// powered off or asleep, so every upload runs a bounded fixed-delay retry
// loop. Uploads are strictly sequential; the device cannot handle concurrent
// ingestion.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	log        *zap.Logger
}

func NewClient(cfg *config.DeviceConfig, log *zap.Logger) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		// Always make at least one attempt.
		maxRetries = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		log:        log,
	}
}

// Upload sends one JPEG to the device's image directory. It returns the
// number of attempts used. On success the error is nil; otherwise the last
// failure after exhausting all attempts.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.tryUpload(ctx, filename, data)
		if err == nil {
			c.log.Info("Image uploaded to device",
				zap.String("filename", filename),
				zap.Int("bytes", len(data)),
				zap.Int("attempt", attempt))
			return attempt, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		c.log.Warn("Device upload failed, will retry",
			zap.String("filename", filename),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Duration("retry_delay", c.retryDelay),
			zap.Error(err))

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}

	return c.maxRetries, fmt.Errorf("upload %s failed after %d attempts: %w", filename, c.maxRetries, lastErr)
}

func (c *Client) tryUpload(ctx context.Context, filename string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/doUpload?dir=%2Fimage%2F", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("device unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device returned status %d", resp.StatusCode)
	}

	return nil
}

// FileList returns the filenames currently in the device's image directory.
func (c *Client) FileList(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/filelist?dir=/image/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list device files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list device files: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list device files: %w", err)
	}

	return parseFileList(body), nil
}

// parseFileList handles the formats different firmware versions serve: a JSON
// array of names or objects, a JSON object with a "files" key, or HTML.
func parseFileList(body []byte) []string {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err == nil {
		switch v := raw.(type) {
		case []interface{}:
			return namesFromJSONList(v)
		case map[string]interface{}:
			if files, ok := v["files"].([]interface{}); ok {
				return namesFromJSONList(files)
			}
		}
		return nil
	}

	matches := fileListHrefRe.FindAllStringSubmatch(string(body), -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func namesFromJSONList(items []interface{}) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			names = append(names, v)
		case map[string]interface{}:
			if name, ok := v["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// Delete removes one file from the device's image directory. Note the double
// slash in the path; the firmware requires it.
func (c *Client) Delete(ctx context.Context, filename string) error {
	target := c.baseURL + "/delete?file=" + url.QueryEscape("/image//"+filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete %s: status %d", filename, resp.StatusCode)
	}

	c.log.Info("Deleted file from device", zap.String("filename", filename))
	return nil
}
