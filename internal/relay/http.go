package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"secretline/internal/domain"
)

// HTTP talks to the relay's metadata and message endpoints.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A zero timeout leaves
// requests bounded only by their context.
func NewHTTP(base string, timeout time.Duration) *HTTP {
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: timeout},
	}
}

func channelPath(id domain.ChannelID, rest string) string {
	return "/channel/" + url.PathEscape(id.String()) + rest
}

func (c *HTTP) CreateChannel(
	ctx context.Context,
	kind domain.ChannelKind,
	members []domain.MemberID,
) (domain.ChannelMetadata, error) {
	var out domain.ChannelMetadata
	err := c.post(ctx, "/channel", CreateChannelRequest{Kind: kind, Members: members}, &out)
	return out, err
}

func (c *HTTP) FetchChannel(ctx context.Context, id domain.ChannelID) (domain.ChannelMetadata, error) {
	var out domain.ChannelMetadata
	if err := c.getJSON(ctx, channelPath(id, ""), &out); err != nil {
		return domain.ChannelMetadata{}, err
	}
	return out, nil
}

func (c *HTTP) JoinChannel(ctx context.Context, id domain.ChannelID, member domain.MemberID) error {
	return c.post(ctx, channelPath(id, "/members"), JoinRequest{Member: member}, nil)
}

func (c *HTTP) LeaveChannel(ctx context.Context, id domain.ChannelID, member domain.MemberID) error {
	path := channelPath(id, "/members/"+url.PathEscape(member.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *HTTP) UploadPublicKey(
	ctx context.Context,
	id domain.ChannelID,
	member domain.MemberID,
	publicKey string,
) error {
	return c.post(ctx, channelPath(id, "/public-key"), PublicKeyRequest{Member: member, PublicKey: publicKey}, nil)
}

func (c *HTTP) UploadSymmetricKeys(
	ctx context.Context,
	id domain.ChannelID,
	wrapped map[domain.MemberID]string,
) error {
	return c.post(ctx, channelPath(id, "/symmetric-keys"), SymmetricKeysRequest{Keys: wrapped}, nil)
}

func (c *HTTP) PostMessage(ctx context.Context, id domain.ChannelID, payload []byte) error {
	return c.post(ctx, channelPath(id, "/messages"), MessageRequest{Payload: string(payload)}, nil)
}

func (c *HTTP) FetchMessages(ctx context.Context, id domain.ChannelID) ([][]byte, error) {
	var resp MessagesResponse
	if err := c.getJSON(ctx, channelPath(id, "/messages"), &resp); err != nil {
		return nil, err
	}
	out := make([][]byte, len(resp.Messages))
	for i, m := range resp.Messages {
		out[i] = []byte(m)
	}
	return out, nil
}

func (c *HTTP) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTP) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(req, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// statusError maps 404 and 409 onto the domain sentinels so callers can use
// errors.Is.
func statusError(req *http.Request, resp *http.Response) error {
	var body ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	msg := resp.Status
	if body.Error != "" {
		msg += ": " + body.Error
	}
	base := fmt.Errorf("relay %s %s: %s", strings.ToLower(req.Method), req.URL.Path, msg)
	switch resp.StatusCode {
	case http.StatusConflict:
		return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, base)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, base)
	}
	return base
}

var _ domain.MetadataClient = (*HTTP)(nil)
