package usecase

import (
	"context"
	"log"
	"time"

	"minglr/internal/cache"
	"minglr/internal/domain/entity"
	"minglr/internal/domain/repository"
	"minglr/internal/infrastructure/ratelimit"
	"minglr/internal/infrastructure/realtime"
	"minglr/pkg/errors"
	"minglr/pkg/logger"
	"minglr/pkg/metrics"
)

const (
	defaultFetchLimit = 50
	backgroundTimeout = 15 * time.Second
)

// ChatUseCase reconciles the conversation cache with the messaging backend:
// cache-first reads with silent refresh, cursor pagination, optimistic sends
// with rollback, and read-receipt propagation from the socket.
type ChatUseCase struct {
	msgRepo     repository.MessageRepository
	store       *cache.Store
	rateLimiter *ratelimit.RateLimiter
	selfID      string
	fetchLimit  int
}

func NewChatUseCase(msgRepo repository.MessageRepository, store *cache.Store, selfID string) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		msgRepo:     msgRepo,
		store:       store,
		rateLimiter: rateLimiter,
		selfID:      selfID,
		fetchLimit:  defaultFetchLimit,
	}
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	ReplyTo        *entity.ReplyRef
}

// OpenConversation marks the conversation active and returns its messages,
// newest first. Cached messages are returned immediately; if the entry is
// stale a silent refresh runs in the background and failures there keep the
// cached state. Only a cold open hits the network synchronously.
func (uc *ChatUseCase) OpenConversation(ctx context.Context, conversationID string, participant entity.Participant) ([]entity.Message, bool, error) {
	uc.store.SetActiveChat(conversationID, participant)

	entry, ok := uc.store.Get(conversationID)
	if ok {
		if uc.store.IsStale(conversationID) {
			uc.refreshInBackground(conversationID)
		}
		uc.MarkConversationRead(ctx, conversationID)
		return entry.Messages, entry.HasMore, nil
	}

	page, err := uc.msgRepo.GetMessages(ctx, conversationID, 1, uc.fetchLimit, "")
	if err != nil {
		log.Printf("OpenConversation: initial fetch failed for %s: %v", conversationID, err)
		return nil, false, err
	}

	uc.store.Set(conversationID, page.Messages, page.HasNext, oldestConfirmedID(page.Messages))
	uc.MarkConversationRead(ctx, conversationID)

	fresh, _ := uc.store.Get(conversationID)
	return fresh.Messages, fresh.HasMore, nil
}

// CloseConversation clears the active marker unconditionally.
func (uc *ChatUseCase) CloseConversation() {
	uc.store.ClearActiveChat()
}

// CachedMessages returns the cached list without fetching. The second return
// tells whether more history is available on the server.
func (uc *ChatUseCase) CachedMessages(conversationID string) ([]entity.Message, bool, bool) {
	entry, ok := uc.store.Get(conversationID)
	if !ok {
		return nil, false, false
	}
	return entry.Messages, entry.HasMore, true
}

func (uc *ChatUseCase) refreshInBackground(conversationID string) {
	token := uc.store.Token(conversationID)
	metrics.BackgroundRefreshes.Inc()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		page, err := uc.msgRepo.GetMessages(ctx, conversationID, 1, uc.fetchLimit, "")
		if err != nil {
			metrics.RefreshFailures.Inc()
			logger.Warn("Background refresh failed for %s: %v", conversationID, err)
			return
		}

		if !uc.store.MergeFetchedIfCurrent(conversationID, token, page.Messages) {
			logger.Debug("Background refresh for %s discarded: entry superseded", conversationID)
		}
	}()
}

// LoadOlderMessages fetches the page before the oldest held message and
// appends it to the tail. A response arriving after the entry was evicted
// recreates it; that is expected, not an error.
func (uc *ChatUseCase) LoadOlderMessages(ctx context.Context, conversationID string) ([]entity.Message, bool, error) {
	entry, ok := uc.store.Get(conversationID)
	if !ok {
		return nil, false, errors.NotFound("Conversation cache entry", nil)
	}
	if !entry.HasMore {
		return entry.Messages, false, nil
	}

	cursor := oldestConfirmedID(entry.Messages)
	if cursor == "" {
		return entry.Messages, entry.HasMore, nil
	}

	page, err := uc.msgRepo.GetMessages(ctx, conversationID, 0, uc.fetchLimit, cursor)
	if err != nil {
		log.Printf("LoadOlderMessages: fetch failed for %s: %v", conversationID, err)
		return nil, entry.HasMore, err
	}

	uc.store.Append(conversationID, page.Messages, page.HasNext, cursor)

	merged, _ := uc.store.Get(conversationID)
	return merged.Messages, page.HasNext, nil
}

// SendMessage runs the optimistic pipeline: insert a provisional message,
// transmit, then swap in the confirmed copy or roll the provisional one back.
// After resolution no message with the provisional id remains.
func (uc *ChatUseCase) SendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if input.Content == "" {
		return nil, errors.BadRequest("Message content must not be empty", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(input.ConversationID, "send_message")
	if !allowed {
		log.Printf("SendMessage throttled for %s: wait %v", input.ConversationID, waitTime)
		return nil, errors.TooManyRequests("Sending too fast, slow down")
	}

	provisional := entity.Message{
		ID:        entity.NewProvisionalID(),
		SenderID:  uc.selfID,
		Content:   input.Content,
		CreatedAt: time.Now(),
		ReplyTo:   input.ReplyTo,
	}

	uc.store.PrependLive(input.ConversationID, provisional)
	metrics.OptimisticSends.Inc()

	replyToID := ""
	if input.ReplyTo != nil {
		replyToID = input.ReplyTo.MessageID
	}

	confirmed, err := uc.msgRepo.SendMessage(ctx, input.ConversationID, input.Content, replyToID)
	if err != nil {
		uc.store.RemoveMessage(input.ConversationID, provisional.ID)
		metrics.SendFailures.Inc()
		log.Printf("SendMessage failed for %s, rolled back %s: %v", input.ConversationID, provisional.ID, err)
		return nil, err
	}

	if confirmed.ReplyTo == nil {
		confirmed.ReplyTo = input.ReplyTo
	}
	uc.store.ReplaceMessage(input.ConversationID, provisional.ID, *confirmed)
	return confirmed, nil
}

// MarkConversationRead tells the backend the local user read the
// conversation. Best-effort: failures are counted and logged, never surfaced,
// and never touch the cached message list.
func (uc *ChatUseCase) MarkConversationRead(ctx context.Context, conversationID string) {
	allowed, _ := uc.rateLimiter.Allow(conversationID, "mark_read")
	if !allowed {
		return
	}

	go func() {
		callCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := uc.msgRepo.MarkAsRead(callCtx, conversationID); err != nil {
			metrics.MarkReadFailures.Inc()
			logger.Warn("MarkConversationRead failed for %s: %v", conversationID, err)
		}
	}()
}

// HandleRealtimeEvent applies a validated socket event to the cache. New
// messages for the active conversation trigger a read receipt; remote read
// events mark the local user's outbound messages.
func (uc *ChatUseCase) HandleRealtimeEvent(event realtime.Event) {
	switch ev := event.(type) {
	case realtime.NewMessageEvent:
		if entity.IsProvisionalID(ev.Message.ID) {
			log.Printf("HandleRealtimeEvent: dropping frame with provisional id %s", ev.Message.ID)
			return
		}
		uc.store.PrependLive(ev.ConversationID, ev.Message)

		if active, ok := uc.store.ActiveChat(); ok && active.ConversationID == ev.ConversationID {
			uc.MarkConversationRead(context.Background(), ev.ConversationID)
		}

	case realtime.MessagesReadEvent:
		marked := uc.store.MarkAllReadFromOther(ev.ConversationID, uc.selfID, ev.ReadAt)
		if marked > 0 {
			metrics.ReadReceipts.Inc()
		}

	default:
		log.Printf("HandleRealtimeEvent: unhandled event type %s", event.EventType())
	}
}

// ListConversations returns the server's summaries with the cache's newer
// last-message previews overlaid.
func (uc *ChatUseCase) ListConversations(ctx context.Context) ([]entity.ConversationSummary, error) {
	summaries, err := uc.msgRepo.GetConversations(ctx)
	if err != nil {
		log.Printf("ListConversations: fetch failed: %v", err)
		return nil, err
	}

	for i := range summaries {
		entry, ok := uc.store.Get(summaries[i].ConversationID)
		if !ok || len(entry.Messages) == 0 {
			continue
		}
		head := entry.Messages[0]
		if summaries[i].LastMessage == nil || head.CreatedAt.After(summaries[i].LastMessage.CreatedAt) {
			summaries[i].LastMessage = &entity.LastMessagePreview{
				Content:   head.Content,
				CreatedAt: head.CreatedAt,
				IsFromMe:  head.SenderID == uc.selfID,
				IsRead:    head.IsRead(),
			}
		}
	}

	return summaries, nil
}

// SweepCache evicts conversations idle past the max age. The caller owns the
// schedule.
func (uc *ChatUseCase) SweepCache() int {
	evicted := uc.store.Sweep()
	if evicted > 0 {
		log.Printf("SweepCache: evicted %d conversation(s)", evicted)
	}
	return evicted
}

// oldestConfirmedID walks from the tail past any provisional ids; provisional
// ids are meaningless to the server as cursors.
func oldestConfirmedID(messages []entity.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if !entity.IsProvisionalID(messages[i].ID) {
			return messages[i].ID
		}
	}
	return ""
}
