// Package client talks to the room admission API of a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
)

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Code)
}

// Is maps a 404 onto core.ErrRoomNotFound.
func (e *APIError) Is(target error) bool {
	return target == core.ErrRoomNotFound && e.Status == http.StatusNotFound
}

type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// CreateRoom asks for a new room. A nil capacity lets the server pick its default.
func (c *Client) CreateRoom(ctx context.Context, capacity *domain.Capacity) (core.RoomDTO, error) {
	var room core.RoomDTO
	body := map[string]any{}
	if capacity != nil {
		body["capacity"] = capacity
	}
	err := c.do(ctx, http.MethodPost, "/rooms", body, &room)
	return room, err
}

func (c *Client) Room(ctx context.Context, code domain.RoomCode) (core.RoomDTO, error) {
	var room core.RoomDTO
	err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(string(code)), nil, &room)
	return room, err
}

// Rooms lists the rooms that currently have live members.
func (c *Client) Rooms(ctx context.Context) ([]core.RoomInfo, error) {
	var out struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	err := c.do(ctx, http.MethodGet, "/rooms", nil, &out)
	return out.Rooms, err
}

func (c *Client) Members(ctx context.Context, code domain.RoomCode) ([]core.MemberDTO, error) {
	var out struct {
		Members []core.MemberDTO `json:"members"`
	}
	err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(string(code))+"/members", nil, &out)
	return out.Members, err
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &h)
	return h, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("module", "client").Str("method", method).Str("path", path).Msg("request")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
