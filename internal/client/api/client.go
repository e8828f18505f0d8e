// Package api is a Go client for the chatter HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/iudanet/chatter/pkg/api"
)

// defaultTimeout ограничивает один HTTP запрос
const defaultTimeout = 30 * time.Second

// Error is a non-2xx answer of the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err if it is an *Error, 0 otherwise.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client представляет HTTP клиент для взаимодействия с сервером.
// Токен, полученный при Register/Login, используется в следующих запросах.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	mu         sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken задает bearer токен для последующих запросов
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token возвращает текущий bearer токен
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register регистрирует новый аккаунт и запоминает выданный токен
func (c *Client) Register(ctx context.Context, username, password string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	req := api.RegisterRequest{Username: username, Password: password}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Login выполняет аутентификацию и запоминает выданный токен
func (c *Client) Login(ctx context.Context, username, password string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	req := api.LoginRequest{Username: username, Password: password}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Logout отзывает текущий токен
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	c.SetToken("")
	return nil
}

// LogoutAll отзывает все сессии аккаунта
func (c *Client) LogoutAll(ctx context.Context) (int, error) {
	var resp api.RevokeResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout-all", nil, &resp); err != nil {
		return 0, fmt.Errorf("logout-all request failed: %w", err)
	}
	c.SetToken("")
	return resp.Revoked, nil
}

// Account возвращает текущий аккаунт
func (c *Client) Account(ctx context.Context) (*api.AccountResponse, error) {
	var resp api.AccountResponse
	if err := c.doRequest(ctx, http.MethodGet, "/account", nil, &resp); err != nil {
		return nil, fmt.Errorf("get account request failed: %w", err)
	}
	return &resp, nil
}

// DeleteAccount удаляет текущий аккаунт
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/account", nil, nil); err != nil {
		return fmt.Errorf("delete account request failed: %w", err)
	}
	c.SetToken("")
	return nil
}

// CreateChannel создает канал
func (c *Client) CreateChannel(ctx context.Context, name string) (*api.ChannelResponse, error) {
	var resp api.ChannelResponse
	if err := c.doRequest(ctx, http.MethodPost, "/channels", api.CreateChannelRequest{Name: name}, &resp); err != nil {
		return nil, fmt.Errorf("create channel request failed: %w", err)
	}
	return &resp, nil
}

// Channels возвращает каналы текущего аккаунта
func (c *Client) Channels(ctx context.Context) ([]api.ChannelResponse, error) {
	var resp api.ChannelListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/channels", nil, &resp); err != nil {
		return nil, fmt.Errorf("list channels request failed: %w", err)
	}
	return resp.Channels, nil
}

// RenameChannel меняет название канала
func (c *Client) RenameChannel(ctx context.Context, channelID, name string) (*api.ChannelResponse, error) {
	var resp api.ChannelResponse
	path := "/channels/" + url.PathEscape(channelID)
	if err := c.doRequest(ctx, http.MethodPatch, path, api.UpdateChannelRequest{Name: &name}, &resp); err != nil {
		return nil, fmt.Errorf("rename channel request failed: %w", err)
	}
	return &resp, nil
}

// DeleteChannel удаляет канал
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), nil, nil); err != nil {
		return fmt.Errorf("delete channel request failed: %w", err)
	}
	return nil
}

// AddMember добавляет участника по account_id или username
func (c *Client) AddMember(ctx context.Context, channelID string, req api.AddMemberRequest) (*api.MemberResponse, error) {
	var resp api.MemberResponse
	path := "/channels/" + url.PathEscape(channelID) + "/members"
	if err := c.doRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("add member request failed: %w", err)
	}
	return &resp, nil
}

// Members возвращает участников канала
func (c *Client) Members(ctx context.Context, channelID string) ([]api.MemberResponse, error) {
	var resp api.MemberListResponse
	path := "/channels/" + url.PathEscape(channelID) + "/members"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list members request failed: %w", err)
	}
	return resp.Members, nil
}

// SetRole меняет роль участника
func (c *Client) SetRole(ctx context.Context, channelID, accountID, role string) (*api.MemberResponse, error) {
	var resp api.MemberResponse
	path := "/channels/" + url.PathEscape(channelID) + "/members/" + url.PathEscape(accountID)
	if err := c.doRequest(ctx, http.MethodPatch, path, api.UpdateMemberRequest{Role: role}, &resp); err != nil {
		return nil, fmt.Errorf("set role request failed: %w", err)
	}
	return &resp, nil
}

// RemoveMember удаляет участника; accountID текущего аккаунта означает выход
func (c *Client) RemoveMember(ctx context.Context, channelID, accountID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/members/" + url.PathEscape(accountID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove member request failed: %w", err)
	}
	return nil
}

// PostMessage отправляет сообщение в канал
func (c *Client) PostMessage(ctx context.Context, channelID, content string) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.doRequest(ctx, http.MethodPost, path, api.MessageRequest{Content: content}, &resp); err != nil {
		return nil, fmt.Errorf("post message request failed: %w", err)
	}
	return &resp, nil
}

// Messages возвращает страницу сообщений, от новых к старым.
// Нулевые limit и before означают значения по умолчанию.
func (c *Client) Messages(ctx context.Context, channelID string, limit int, before time.Time) (*api.MessageListResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if !before.IsZero() {
		q.Set("before", before.Format(time.RFC3339Nano))
	}
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp api.MessageListResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages request failed: %w", err)
	}
	return &resp, nil
}

// EditMessage меняет текст своего сообщения
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	if err := c.doRequest(ctx, http.MethodPatch, path, api.MessageRequest{Content: content}, &resp); err != nil {
		return nil, fmt.Errorf("edit message request failed: %w", err)
	}
	return &resp, nil
}

// DeleteMessage удаляет сообщение
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete message request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос к /api/v1
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &Error{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
