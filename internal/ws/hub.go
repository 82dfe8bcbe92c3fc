package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexus226/backend/internal/chatsync"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/models"
)

// Типы сообщений для клиента
const (
	EventSnapshot = "snapshot"
)

const seedTimeout = 5 * time.Second

// MessageSource отдаёт историю для заполнения комнаты.
type MessageSource interface {
	ListRecent(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// envelope контракт сообщений WebSocket: "type" имя события, "data" полезная нагрузка.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type room struct {
	view    *chatsync.View
	clients map[*Client]struct{}
}

type roomEvent struct {
	categoryID uuid.UUID
	event      chatsync.Event
}

// Hub держит по комнате на категорию: живое представление чата и подписчиков.
// Все карты принадлежат циклу Run.
type Hub struct {
	source     MessageSource
	limit      int
	rooms      map[uuid.UUID]*room
	register   chan *Client
	unregister chan *Client
	events     chan roomEvent
	resync     chan struct{}
	done       chan struct{}
	log        *logrus.Entry
}

func NewHub(source MessageSource, limit int) *Hub {
	return &Hub{
		source:     source,
		limit:      limit,
		rooms:      make(map[uuid.UUID]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan roomEvent, 64),
		resync:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		log:        logger.Component("ws.hub"),
	}
}

// Run обрабатывает подписки и события до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(client)
		case re := <-h.events:
			h.apply(re)
		case <-h.resync:
			h.resyncRooms(ctx)
		}
	}
}

// Register подписывает клиента на комнату его категории.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister отписывает клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish передаёт изменение чата в комнату категории.
func (h *Hub) Publish(categoryID uuid.UUID, event chatsync.Event) {
	select {
	case h.events <- roomEvent{categoryID: categoryID, event: event}:
	case <-h.done:
	}
}

// Resync перечитывает историю всех комнат. Повторные вызовы до обработки схлопываются.
func (h *Hub) Resync() {
	select {
	case h.resync <- struct{}{}:
	default:
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	r, ok := h.rooms[client.categoryID]
	if !ok {
		view := chatsync.NewView(h.limit)
		if err := h.seed(ctx, client.categoryID, view); err != nil {
			h.log.WithError(err).WithField("category_id", client.categoryID).Error("не удалось загрузить историю чата")
			close(client.send)
			return
		}
		r = &room{view: view, clients: make(map[*Client]struct{})}
		h.rooms[client.categoryID] = r
	}

	r.clients[client] = struct{}{}
	h.deliver(r, client, envelope{Type: EventSnapshot, Data: r.view.Messages()})
}

func (h *Hub) removeClient(client *Client) {
	r, ok := h.rooms[client.categoryID]
	if !ok {
		return
	}
	if _, ok := r.clients[client]; !ok {
		return
	}
	delete(r.clients, client)
	close(client.send)

	if len(r.clients) == 0 {
		delete(h.rooms, client.categoryID)
	}
}

func (h *Hub) apply(re roomEvent) {
	r, ok := h.rooms[re.categoryID]
	if !ok {
		return
	}
	if !r.view.Apply(re.event) {
		return
	}
	h.broadcast(r, envelope{Type: string(re.event.Op), Data: re.event.Message})
}

func (h *Hub) resyncRooms(ctx context.Context) {
	for categoryID, r := range h.rooms {
		if err := h.seed(ctx, categoryID, r.view); err != nil {
			h.log.WithError(err).WithField("category_id", categoryID).Warn("ресинхронизация комнаты не удалась")
			continue
		}
		h.broadcast(r, envelope{Type: EventSnapshot, Data: r.view.Messages()})
	}
}

func (h *Hub) seed(ctx context.Context, categoryID uuid.UUID, view *chatsync.View) error {
	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	history, err := h.source.ListRecent(ctx, categoryID, h.limit)
	if err != nil {
		return err
	}
	view.Seed(history)
	return nil
}

func (h *Hub) broadcast(r *room, msg envelope) {
	for client := range r.clients {
		h.deliver(r, client, msg)
	}
}

// deliver ставит сообщение в очередь клиента. Медленный клиент отключается.
func (h *Hub) deliver(r *room, client *Client, msg envelope) {
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("не удалось сериализовать сообщение")
		return
	}

	select {
	case client.send <- raw:
	default:
		delete(r.clients, client)
		close(client.send)
		if len(r.clients) == 0 {
			delete(h.rooms, client.categoryID)
		}
	}
}

func (h *Hub) closeAll() {
	for categoryID, r := range h.rooms {
		for client := range r.clients {
			close(client.send)
		}
		delete(h.rooms, categoryID)
	}
}
