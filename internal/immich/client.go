package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smeegoan/Immich2GeekMagic/internal/config"
	"github.com/smeegoan/Immich2GeekMagic/internal/domain"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date, want MM-DD or YYYY-MM-DD")
	ErrAssetFetch        = errors.New("fetch asset")
)

// Client talks to the Immich API. It keeps no state beyond the credential
// attached to every request.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg *config.ImmichConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// ResolveQuery builds the memory query for a run. An empty override means
// today's local date. A YYYY-MM-DD override contributes only its month and
// day; the year is ignored (offsets are always relative to the current year).
func ResolveQuery(override string, yearsBack int) (domain.MemoryQuery, error) {
	if override == "" {
		now := time.Now()
		return domain.MemoryQuery{Month: now.Month(), Day: now.Day(), YearsBack: yearsBack}, nil
	}

	var t time.Time
	var err error
	switch len(override) {
	case 5:
		t, err = time.Parse("01-02", override)
	case 10:
		t, err = time.Parse("2006-01-02", override)
	default:
		err = fmt.Errorf("unrecognized length %d", len(override))
	}
	if err != nil {
		return domain.MemoryQuery{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, override)
	}

	return domain.MemoryQuery{Month: t.Month(), Day: t.Day(), YearsBack: yearsBack}, nil
}

type searchRequest struct {
	TakenAfter  string `json:"takenAfter"`
	TakenBefore string `json:"takenBefore"`
}

type searchAsset struct {
	ID            string     `json:"id"`
	FileCreatedAt *time.Time `json:"fileCreatedAt"`
	ExifInfo      struct {
		DateTimeOriginal *time.Time `json:"dateTimeOriginal"`
	} `json:"exifInfo"`
}

type searchResponse struct {
	Assets struct {
		Items []searchAsset `json:"items"`
	} `json:"assets"`
}

// ListMemories queries one exact historical date per year offset and flattens
// the results in offset order. Offsets are independent: a date that does not
// exist in some year (Feb 29) or a failed search for one year is skipped, the
// rest of the run is unaffected.
func (c *Client) ListMemories(ctx context.Context, q domain.MemoryQuery) ([]domain.MemoryAsset, error) {
	currentYear := time.Now().Year()

	var memories []domain.MemoryAsset
	for offset := 1; offset <= q.YearsBack; offset++ {
		year := currentYear - offset
		day := time.Date(year, q.Month, q.Day, 0, 0, 0, 0, time.UTC)
		if day.Month() != q.Month || day.Day() != q.Day {
			c.log.Debug("Date does not exist in year, skipping",
				zap.Int("year", year),
				zap.Int("month", int(q.Month)),
				zap.Int("day", q.Day))
			continue
		}

		assets, err := c.searchDay(ctx, day)
		if err != nil {
			c.log.Warn("Memory search failed for year, skipping",
				zap.Int("year", year),
				zap.Error(err))
			continue
		}

		if len(assets) > 0 {
			c.log.Info("Found memories",
				zap.Int("year", year),
				zap.Int("count", len(assets)))
			memories = append(memories, assets...)
		}
	}

	return memories, nil
}

func (c *Client) searchDay(ctx context.Context, day time.Time) ([]domain.MemoryAsset, error) {
	payload := searchRequest{
		TakenAfter:  day.Format("2006-01-02") + "T00:00:00.000Z",
		TakenBefore: day.Format("2006-01-02") + "T23:59:59.999Z",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/search/metadata", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	assets := make([]domain.MemoryAsset, 0, len(result.Assets.Items))
	for _, item := range result.Assets.Items {
		takenAt := day
		if item.ExifInfo.DateTimeOriginal != nil {
			takenAt = *item.ExifInfo.DateTimeOriginal
		} else if item.FileCreatedAt != nil {
			takenAt = *item.FileCreatedAt
		}
		assets = append(assets, domain.MemoryAsset{
			ID:           item.ID,
			TakenAt:      takenAt,
			DownloadPath: "/api/assets/" + item.ID + "/original",
		})
	}

	return assets, nil
}

// FetchAssetBytes downloads one asset's original file. Failures are scoped to
// the asset; the caller records them and moves on.
func (c *Client) FetchAssetBytes(ctx context.Context, asset domain.MemoryAsset) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+asset.DownloadPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrAssetFetch, asset.ID, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrAssetFetch, asset.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %s: status %d", ErrAssetFetch, asset.ID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrAssetFetch, asset.ID, err)
	}

	c.log.Debug("Asset downloaded",
		zap.String("asset_id", asset.ID),
		zap.Int("bytes", len(data)))

	return data, nil
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// VerifyCredentials checks the API key against /api/users/me before a run
// does any real work.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/me", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("verify credentials: status %d", resp.StatusCode)
	}

	var user userInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}

	c.log.Info("Authenticated against Immich",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email))

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
}
