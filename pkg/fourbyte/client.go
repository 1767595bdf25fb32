package fourbyte

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"evm-kit/pkg/cache"
)

// DefaultBaseURL 公共函数签名数据库
const DefaultBaseURL = "https://www.4byte.directory"

const cacheTTL = 24 * time.Hour

// maxPages 最多跟随 next 翻页的次数，常见 selector 只有一页
const maxPages = 5

// Client 通过 selector 反查文本签名
// 查询是尽力而为的: 任何失败都视为 "没有匹配"
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	log        *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache 通常传入 MemoryCache，或 MultiLevelCache(Memory, Redis)
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signature struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	TextSignature string    `json:"text_signature"`
	HexSignature  string    `json:"hex_signature"`
}

type signaturePage struct {
	Count   int         `json:"count"`
	Next    string      `json:"next"`
	Results []signature `json:"results"`
}

// Lookup 返回与 hexSignature 匹配的全部文本签名，按登记时间从早到晚排序
// 跟随 next 翻页，最多读取 maxPages 页；没有匹配或查询失败时返回 nil
func (c *Client) Lookup(ctx context.Context, hexSignature string) []string {
	key := normalize(hexSignature)

	if c.cache != nil {
		var cached []string
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return cached
		}
	}

	matches, err := c.fetch(ctx, key)
	if err != nil {
		c.log.Warn("4byte lookup failed", zap.String("selector", key), zap.Error(err))
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, matches, cacheTTL); err != nil {
			c.log.Debug("4byte cache write failed", zap.Error(err))
		}
	}
	return matches
}

func (c *Client) fetch(ctx context.Context, hexSignature string) ([]string, error) {
	endpoint := c.baseURL + "/api/v1/signatures/?hex_signature=" + url.QueryEscape(hexSignature)

	var all []signature
	for page := 0; page < maxPages && endpoint != ""; page++ {
		p, err := c.fetchPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		endpoint = p.Next
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.TextSignature)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) (*signaturePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var page signaturePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}

func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	return h
}
