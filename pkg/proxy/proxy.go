package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evm-kit/pkg/errno"
)

// EchoURL 返回调用方公网 IP 的服务，用于验证代理是否生效
const EchoURL = "http://eth0.me/"

const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultHeaders 每个 RPC 请求都会带上的请求头
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("accept", "*/*")
	h.Set("accept-language", "en-US,en;q=0.9")
	h.Set("content-type", "application/json")
	h.Set("user-agent", chromeUserAgent)
	return h
}

// Normalize 为 "user:pass@host:port" 形式的代理补上 http:// 前缀
func Normalize(proxy string) string {
	proxy = strings.TrimSpace(proxy)
	if proxy != "" && !strings.Contains(proxy, "http") {
		return "http://" + proxy
	}
	return proxy
}

// HTTPClient 构造经过代理的 HTTP 客户端，proxy 为空时直连
func HTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		u, err := url.Parse(Normalize(proxy))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errno.ErrInvalidProxy, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Check 通过代理请求 echoURL，返回的 IP 必须出现在代理地址里
func Check(ctx context.Context, proxy, echoURL string) error {
	proxy = Normalize(proxy)
	client, err := HTTPClient(proxy, 10*time.Second)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrInvalidProxy, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrInvalidProxy, err)
	}
	yourIP := strings.TrimSpace(string(body))
	if yourIP == "" || !strings.Contains(proxy, yourIP) {
		return fmt.Errorf("%w: proxy doesn't work, your IP is %s", errno.ErrInvalidProxy, yourIP)
	}
	return nil
}
