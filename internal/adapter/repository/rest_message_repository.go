package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"minglr/internal/domain/entity"
	"minglr/internal/domain/repository"
	"minglr/pkg/errors"
)

// RestMessageRepository talks to the Minglr messaging API over HTTP. It is
// the only place network failures are observed; they are mapped to AppErrors
// and never reach the cache mid-mutation.
type RestMessageRepository struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRestMessageRepository(baseURL, token string) *RestMessageRepository {
	return &RestMessageRepository{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type messagePageResponse struct {
	Data       []entity.Message `json:"data"`
	Pagination struct {
		HasNext bool `json:"has_next"`
	} `json:"pagination"`
}

type messageResponse struct {
	Data entity.Message `json:"data"`
}

type conversationsResponse struct {
	Data []entity.ConversationSummary `json:"data"`
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

func (r *RestMessageRepository) GetMessages(ctx context.Context, conversationID string, page, limit int, cursor string) (*repository.MessagePage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	} else if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	var resp messagePageResponse
	path := fmt.Sprintf("/chats/%s/messages?%s", url.PathEscape(conversationID), q.Encode())
	if err := r.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &repository.MessagePage{
		Messages: resp.Data,
		HasNext:  resp.Pagination.HasNext,
	}, nil
}

func (r *RestMessageRepository) SendMessage(ctx context.Context, conversationID, content, replyToID string) (*entity.Message, error) {
	body := sendMessageRequest{Content: content, ReplyToID: replyToID}

	var resp messageResponse
	path := fmt.Sprintf("/chats/%s/messages", url.PathEscape(conversationID))
	if err := r.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, errors.Upstream("send response missing message id", nil)
	}
	return &resp.Data, nil
}

func (r *RestMessageRepository) MarkAsRead(ctx context.Context, conversationID string) error {
	path := fmt.Sprintf("/chats/%s/read", url.PathEscape(conversationID))
	return r.do(ctx, http.MethodPost, path, nil, nil)
}

func (r *RestMessageRepository) GetConversations(ctx context.Context) ([]entity.ConversationSummary, error) {
	var resp conversationsResponse
	if err := r.do(ctx, http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (r *RestMessageRepository) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Internal("failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return errors.Internal("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Upstream("messaging API unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound("Conversation", nil)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Upstream(fmt.Sprintf("messaging API returned %d: %s", resp.StatusCode, data), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Upstream("failed to decode messaging API response", err)
	}
	return nil
}
