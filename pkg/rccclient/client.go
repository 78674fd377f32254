// Package rccclient SDK 调用配置中心接口用的 HTTP 客户端
package rccclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// R 单值响应信封，Status 为 0 表示成功
type R[T any] struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   T      `json:"data"`
}

// OK 业务是否成功
func (r *R[T]) OK() bool { return r.Status == 0 }

// RList 列表响应信封
type RList[T any] struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   []T    `json:"data"`
}

// OK 业务是否成功
func (r *RList[T]) OK() bool { return r.Status == 0 }

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response %s", e.Status)
}

// Client 不重试；读超时作用于整个请求，连接超时只作用于建连
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New 创建客户端，baseURL 为空时 url 参数必须是绝对地址
func New(baseURL string, readTimeout, connectTimeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext

	client := resty.New().
		SetTransport(transport).
		SetTimeout(readTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return &Client{http: client, logger: zap.NewNop()}
}

// SetLogger 设置日志
func (c *Client) SetLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Get GET 请求并解码为 R[T]
func Get[T any](ctx context.Context, c *Client, rawURL string, params map[string]any, headers map[string]string) (*R[T], error) {
	var out R[T]
	if err := c.do(ctx, http.MethodGet, rawURL, nil, params, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetList GET 请求并解码为 RList[T]
func GetList[T any](ctx context.Context, c *Client, rawURL string, params map[string]any, headers map[string]string) (*RList[T], error) {
	var out RList[T]
	if err := c.do(ctx, http.MethodGet, rawURL, nil, params, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostJSON 以 JSON 提交 body 并解码为 R[T]；body 为 string/[]byte 时原样发送
func PostJSON[T any](ctx context.Context, c *Client, rawURL string, body any, params map[string]any, headers map[string]string) (*R[T], error) {
	var out R[T]
	if err := c.do(ctx, http.MethodPost, rawURL, body, params, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, params map[string]any, headers map[string]string, out any) error {
	target, err := withParams(rawURL, params)
	if err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx)
	for k, v := range headers {
		if k == "" {
			continue
		}
		req.SetHeader(k, v)
	}
	if method == http.MethodPost {
		req.SetHeader("Content-Type", "application/json; charset=utf-8").SetBody(body)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		c.logger.Debug("RCC request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return fmt.Errorf("failed to call %s %s: %w", method, target, err)
	}
	if !resp.IsSuccess() {
		return &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       resp.String(),
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, target, err)
	}
	return nil
}

// withParams 覆盖 url 中的同名参数，nil 值编码为空串
func withParams(rawURL string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, v := range params {
		if k == "" {
			continue
		}
		if v == nil {
			q.Set(k, "")
			continue
		}
		q.Set(k, fmt.Sprint(v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
