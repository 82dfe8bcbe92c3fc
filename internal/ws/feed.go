package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/nexus226/backend/internal/chatsync"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/repository"
)

// ChatChannel канал NOTIFY, в который пишет триггер chat_messages.
const ChatChannel = "chat_messages"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingEvery    = 90 * time.Second
	fetchTimeout         = 5 * time.Second
)

// MessageFetcher дочитывает строку по id из уведомления.
type MessageFetcher interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
}

// Publisher принимает события чата. Реализуется Hub.
type Publisher interface {
	Publish(categoryID uuid.UUID, event chatsync.Event)
	Resync()
}

type notification struct {
	Op         string    `json:"op"`
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
}

// Feed переводит уведомления Postgres о chat_messages в события хаба.
type Feed struct {
	dsn   string
	fetch MessageFetcher
	out   Publisher
	log   *logrus.Entry
}

func NewFeed(dsn string, fetch MessageFetcher, out Publisher) *Feed {
	return &Feed{
		dsn:   dsn,
		fetch: fetch,
		out:   out,
		log:   logger.Component("ws.feed"),
	}
}

// Run слушает канал до отмены ctx. После переподключения слушателя хаб ресинхронизируется.
func (f *Feed) Run(ctx context.Context) error {
	listener := pq.NewListener(f.dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			f.log.WithError(err).WithField("event", ev).Warn("слушатель postgres")
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChatChannel); err != nil {
		return fmt.Errorf("ws feed: listen %s: %w", ChatChannel, err)
	}
	f.log.Info("подписка на изменения чата запущена")

	ticker := time.NewTicker(listenerPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Соединение переустановлено, уведомления могли потеряться.
				f.out.Resync()
				continue
			}
			f.handle(ctx, n.Extra)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				f.log.WithError(err).Warn("ping слушателя postgres")
			}
		}
	}
}

func (f *Feed) handle(ctx context.Context, payload string) {
	n, err := decodeNotification(payload)
	if err != nil {
		f.log.WithError(err).WithField("payload", payload).Warn("некорректное уведомление чата")
		return
	}

	event, ok, err := f.toEvent(ctx, n)
	if err != nil {
		f.log.WithError(err).WithField("message_id", n.ID).Error("не удалось прочитать сообщение чата")
		return
	}
	if ok {
		f.out.Publish(n.CategoryID, event)
	}
}

func (f *Feed) toEvent(ctx context.Context, n notification) (chatsync.Event, bool, error) {
	op := chatsync.Op(n.Op)
	if op == chatsync.OpDelete {
		return chatsync.Event{Op: op, Message: models.ChatMessage{ID: n.ID, CategoryID: n.CategoryID}}, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	msg, err := f.fetch.GetByID(ctx, n.ID)
	if err != nil {
		// Строку успели удалить, событие delete придёт следом.
		if errors.Is(err, repository.ErrChatMessageNotFound) {
			return chatsync.Event{}, false, nil
		}
		return chatsync.Event{}, false, err
	}
	return chatsync.Event{Op: op, Message: *msg}, true, nil
}

func decodeNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	switch chatsync.Op(n.Op) {
	case chatsync.OpInsert, chatsync.OpUpdate, chatsync.OpDelete:
	default:
		return n, fmt.Errorf("decode notification: unknown op %q", n.Op)
	}
	if n.ID == uuid.Nil || n.CategoryID == uuid.Nil {
		return n, errors.New("decode notification: missing id")
	}
	return n, nil
}
