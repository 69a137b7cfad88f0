package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/hostel-backend/internal/goroutine"
	"github.com/ignatzorin/hostel-backend/internal/logger"
)

// Имена событий realtime-канала.
const (
	EventNewOTP            = "new_otp"
	EventVisitCreated      = "visitCreated"
	EventVisitCheckedOut   = "visitCheckedOut"
	EventOverrideRequested = "override_requested"
	EventOverrideResolved  = "override_resolved"
	EventOutpassUpdated    = "outpass_updated"
)

// NotificationSaver интерфейс для сохранения уведомлений в БД.
type NotificationSaver interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// Hub управляет всеми WebSocket клиентами.
// Адресация двухуровневая: персональный канал по идентификатору пользователя
// и широковещательные группы по роли (guard, warden). Клиент получает только
// события своего пользователя и своей роли — чужие каналы недостижимы.
type Hub struct {
	mu                sync.RWMutex
	clients           map[uuid.UUID]map[*Client]struct{}
	roles             map[string]map[*Client]struct{}
	register          chan *Client
	unregister        chan *Client
	broadcast         chan message
	notificationSaver NotificationSaver
	ctx               context.Context
}

type message struct {
	// userID адресует персональный канал; при пустом значении
	// сообщение уходит всей группе role.
	userID  uuid.UUID
	role    string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		roles:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
	}
}

// SetNotificationSaver устанавливает сервис для сохранения уведомлений.
func (h *Hub) SetNotificationSaver(saver NotificationSaver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notificationSaver = saver
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastToUser отправляет событие конкретному пользователю и сохраняет
// уведомление в БД, чтобы клиент мог дочитать его после переподключения.
// Доставка best-effort: ни сохранение, ни отправка не блокируют вызывающего.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	saver := h.notificationSaver
	ctx := h.ctx
	h.mu.RUnlock()

	if saver != nil {
		goroutine.SafeGo(func() {
			if err := saver.CreateNotification(ctx, userID, event, data); err != nil {
				logger.Errorf("ws: не удалось сохранить уведомление: %v", err)
			}
		})
	}

	h.broadcast <- message{userID: userID, payload: raw}
	return nil
}

// BroadcastToRole отправляет событие всем подключённым клиентам роли.
// Широковещательные события не сохраняются: они дублируются списочными
// эндпоинтами (активные визиты, очередь запросов).
func (h *Hub) BroadcastToRole(role string, event string, data any) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}

	h.broadcast <- message{role: role, payload: raw}
	return nil
}

// marshalEvent сериализует событие в контракт WebSocket API:
// поле "type" содержит имя события, "data" — полезную нагрузку.
func marshalEvent(event string, data any) ([]byte, error) {
	payload := map[string]any{
		"type": event,
		"data": data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}

	if client.role != "" {
		if _, ok := h.roles[client.role]; !ok {
			h.roles[client.role] = make(map[*Client]struct{})
		}
		h.roles[client.role][client] = struct{}{}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}

	if clients, ok := h.roles[client.role]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roles, client.role)
		}
	}
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[*Client]struct{}
	if msg.userID != uuid.Nil {
		targets = h.clients[msg.userID]
	} else {
		targets = h.roles[msg.role]
	}

	for client := range targets {
		select {
		case client.send <- msg.payload:
		default:
			// Буфер клиента переполнен: закрываем соединение асинхронно.
			goroutine.SafeGo(client.Close)
		}
	}
}
