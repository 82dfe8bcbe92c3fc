// Package chatsync сводит историю чата и живые изменения в одно упорядоченное представление.
package chatsync

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/models"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event изменение строки chat_messages. Для delete достаточно Message.ID.
type Event struct {
	Op      Op                 `json:"op"`
	Message models.ChatMessage `json:"message"`
}

// View последние limit сообщений категории по возрастанию времени.
// Не потокобезопасен: владеет им один цикл.
type View struct {
	limit    int
	messages []models.ChatMessage
}

func NewView(limit int) *View {
	if limit <= 0 {
		limit = 50
	}
	return &View{limit: limit, messages: make([]models.ChatMessage, 0, limit)}
}

// Seed заменяет содержимое историей: сортирует, убирает дубли по id и оставляет новейшие.
func (v *View) Seed(history []models.ChatMessage) {
	byID := make(map[uuid.UUID]models.ChatMessage, len(history))
	for _, m := range history {
		byID[m.ID] = m
	}

	messages := make([]models.ChatMessage, 0, len(byID))
	for _, m := range byID {
		messages = append(messages, m)
	}
	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	v.messages = messages
	v.trim()
}

// Apply применяет событие и сообщает, изменилось ли представление.
func (v *View) Apply(e Event) bool {
	idx := v.indexOf(e.Message.ID)

	switch e.Op {
	case OpInsert:
		if idx >= 0 {
			v.messages[idx] = e.Message
			return true
		}
		v.messages = append(v.messages, e.Message)
		v.trim()
		return true
	case OpUpdate:
		if idx < 0 {
			return false
		}
		v.messages[idx] = e.Message
		return true
	case OpDelete:
		if idx < 0 {
			return false
		}
		v.messages = append(v.messages[:idx], v.messages[idx+1:]...)
		return true
	default:
		return false
	}
}

// Messages возвращает копию содержимого.
func (v *View) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *View) Len() int {
	return len(v.messages)
}

func (v *View) indexOf(id uuid.UUID) int {
	for i := range v.messages {
		if v.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *View) trim() {
	if extra := len(v.messages) - v.limit; extra > 0 {
		v.messages = append(v.messages[:0:0], v.messages[extra:]...)
	}
}
