package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/analysis"
)

// Client pulls from a feed server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	codec      Codec
}

// NewClient creates a client for addr, which may be ":8080", "host:port" or
// a full http URL.
func NewClient(addr string, codec Codec) *Client {
	switch {
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
	case strings.HasPrefix(addr, ":"):
		addr = "http://localhost" + addr
	default:
		addr = "http://" + addr
	}
	if codec == "" {
		codec = CodecJSON
	}
	return &Client{
		baseURL:    strings.TrimSuffix(addr, "/"),
		httpClient: http.DefaultClient,
		codec:      codec,
	}
}

// Voices fetches the current snapshot.
func (c *Client) Voices(ctx context.Context) (ambient.Snapshot, error) {
	var snap ambient.Snapshot
	err := c.do(ctx, http.MethodGet, "/voices", &snap)
	return snap, err
}

// Status fetches session counters.
func (c *Client) Status(ctx context.Context) (ambient.Status, error) {
	var st ambient.Status
	err := c.do(ctx, http.MethodGet, "/status", &st)
	return st, err
}

// PitchClasses fetches the pitch-class distribution.
func (c *Client) PitchClasses(ctx context.Context) (analysis.PitchClassDistribution, error) {
	var d analysis.PitchClassDistribution
	err := c.do(ctx, http.MethodGet, "/pitch-classes", &d)
	return d, err
}

// Start sends the start trigger.
func (c *Client) Start(ctx context.Context) (StartResponse, error) {
	var resp StartResponse
	err := c.do(ctx, http.MethodPost, "/start", &resp)
	return resp, err
}

// Get fetches path and decodes it into v. JSON payloads decode into any as
// generic maps, which is what query tools expect.
func (c *Client) Get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, v)
}

func (c *Client) do(ctx context.Context, method, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("feed: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", c.codec.ContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("feed: read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed: %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := c.codec.Unmarshal(body, v); err != nil {
		return fmt.Errorf("feed: decode %s: %w", path, err)
	}
	return nil
}

// Stream is a WebSocket connection that returns one payload per pull.
type Stream struct {
	conn  *websocket.Conn
	codec Codec
}

// Dial opens the WebSocket feed.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	u, err := url.Parse(c.baseURL + "/voices/ws")
	if err != nil {
		return nil, fmt.Errorf("feed: dial: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"codec": {string(c.codec)}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", u, err)
	}
	return &Stream{conn: conn, codec: c.codec}, nil
}

// Pull requests one payload by name (see RequestVoices) and decodes it into v.
func (s *Stream) Pull(request string, v any) error {
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(request)); err != nil {
		return fmt.Errorf("feed: pull: %w", err)
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("feed: pull: %w", err)
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("feed: decode %s: %w", request, err)
	}
	return nil
}

// Snapshot pulls the current voices.
func (s *Stream) Snapshot() (ambient.Snapshot, error) {
	var snap ambient.Snapshot
	err := s.Pull(RequestVoices, &snap)
	return snap, err
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
