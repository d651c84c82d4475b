package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// room holds everything shared by the connections of one room. All fields
// are guarded by mu. Once closed is set the room has been removed from the
// registry and must not be used again.
type room struct {
	name     domain.RoomName
	mu       sync.Mutex
	conns    map[domain.ConnectionID]*domain.Connection
	order    []domain.ConnectionID
	messages map[domain.MessageID]*domain.Message
	closed   bool
}

func newRoom(name domain.RoomName) *room {
	return &room{
		name:     name,
		conns:    make(map[domain.ConnectionID]*domain.Connection),
		messages: make(map[domain.MessageID]*domain.Message),
	}
}

// online lists usernames in join order, one entry per connection.
func (r *room) online() []string {
	users := make([]string, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.conns[id].Username)
	}
	return users
}

func (r *room) hasUser(username string) bool {
	for _, c := range r.conns {
		if c.Username == username {
			return true
		}
	}
	return false
}

func (r *room) remove(id domain.ConnectionID) (*domain.Connection, bool) {
	conn, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	for i, cid := range r.order {
		if cid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return conn, true
}

// RoomRegistry owns every room, its connections, roster and message history.
// Each room is its own critical section; the rooms map has a separate lock
// that is never held while waiting for a room lock.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[domain.RoomName]*room

	sendTimeout time.Duration
	metrics     ports.MetricsRecorder
	logger      *zap.SugaredLogger
	newID       func() string
}

func NewRoomRegistry(sendTimeout time.Duration, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *RoomRegistry {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RoomRegistry{
		rooms:       make(map[domain.RoomName]*room),
		sendTimeout: sendTimeout,
		metrics:     metrics,
		logger:      logger,
		newID:       func() string { return uuid.New().String() },
	}
}

// lockRoom returns name's room locked, creating it when create is set. It
// returns nil when the room does not exist and create is false.
func (r *RoomRegistry) lockRoom(name domain.RoomName, create bool) *room {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[name]
		if !ok {
			if !create {
				r.mu.Unlock()
				return nil
			}
			rm = newRoom(name)
			r.rooms[name] = rm
			r.metrics.RoomOpened(name)
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if !rm.closed {
			return rm
		}
		// Lost a race with the last disconnect; the room is gone, look again.
		rm.mu.Unlock()
	}
}

// dropIfEmptyLocked removes rm from the registry once it has no connections.
// Message history goes with it.
func (r *RoomRegistry) dropIfEmptyLocked(rm *room) {
	if len(rm.conns) > 0 || rm.closed {
		return
	}
	rm.closed = true
	r.mu.Lock()
	if r.rooms[rm.name] == rm {
		delete(r.rooms, rm.name)
	}
	r.mu.Unlock()
	r.metrics.RoomClosed(rm.name)
	r.logger.Debugw("room closed", "room", rm.name)
}

// Connect registers transport under room with a fresh connection id and
// announces the join. The returned roster is taken after the announcement, so
// it lacks username when the join itself could not be delivered.
func (r *RoomRegistry) Connect(ctx context.Context, name domain.RoomName, username string, transport domain.Transport) (*domain.Connection, []string) {
	conn := &domain.Connection{
		ID:        domain.ConnectionID(r.newID()),
		Room:      name,
		Username:  username,
		Transport: transport,
	}

	rm := r.lockRoom(name, true)
	defer rm.mu.Unlock()

	rm.conns[conn.ID] = conn
	rm.order = append(rm.order, conn.ID)
	r.metrics.ConnectionJoined(name)

	r.logger.Infow("connection joined", "room", name, "user", username, "conn_id", conn.ID, "online", len(rm.order))

	r.fanOutLocked(ctx, rm, domain.NewJoinEvent(username, rm.online()))
	r.dropIfEmptyLocked(rm)
	return conn, rm.online()
}

// Disconnect removes the connection and announces the leave. Calling it for
// a connection that is already gone is a no-op and reports false.
func (r *RoomRegistry) Disconnect(ctx context.Context, name domain.RoomName, id domain.ConnectionID) bool {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	conn, ok := rm.remove(id)
	if !ok {
		return false
	}
	r.metrics.ConnectionLeft(name)
	r.logger.Infow("connection left", "room", name, "user", conn.Username, "conn_id", id)

	r.fanOutLocked(ctx, rm, domain.NewLeaveEvent(conn.Username, rm.online()))
	r.dropIfEmptyLocked(rm)
	return true
}

// StoreMessage inserts msg into its room's history keyed by id. Messages for a
// room with no connections are discarded since the room does not exist.
func (r *RoomRegistry) StoreMessage(name domain.RoomName, msg *domain.Message) {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return
	}
	defer rm.mu.Unlock()
	storeLocked(rm, msg)
}

func storeLocked(rm *room, msg *domain.Message) {
	if msg.Reactions == nil {
		msg.Reactions = make(domain.Reactions)
	}
	rm.messages[msg.ID] = msg
}

// GetMessage returns a snapshot of the message.
func (r *RoomRegistry) GetMessage(name domain.RoomName, id domain.MessageID) (*domain.Message, bool) {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return nil, false
	}
	defer rm.mu.Unlock()

	msg, ok := rm.messages[id]
	if !ok {
		return nil, false
	}
	return msg.Clone(), true
}

func (r *RoomRegistry) IsUserPresent(name domain.RoomName, username string) bool {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()
	return rm.hasUser(username)
}

// AddReaction is idempotent per (emoji, username). It reports false only when
// the message does not exist.
func (r *RoomRegistry) AddReaction(name domain.RoomName, id domain.MessageID, emoji, username string) bool {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	msg, ok := rm.messages[id]
	if !ok {
		return false
	}
	msg.Reactions.Add(emoji, username)
	return true
}

// RemoveReaction reports false when the message or the user's reaction is absent.
func (r *RoomRegistry) RemoveReaction(name domain.RoomName, id domain.MessageID, emoji, username string) bool {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	msg, ok := rm.messages[id]
	if !ok {
		return false
	}
	return msg.Reactions.Remove(emoji, username)
}

// Broadcast delivers event to every connection currently in the room.
func (r *RoomRegistry) Broadcast(ctx context.Context, name domain.RoomName, event domain.Event) {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return
	}
	defer rm.mu.Unlock()

	r.fanOutLocked(ctx, rm, event)
	r.dropIfEmptyLocked(rm)
}

// PostMessage stores msg and broadcasts it in one step so that the room sees
// messages in the order they were stored.
func (r *RoomRegistry) PostMessage(ctx context.Context, msg *domain.Message) error {
	rm := r.lockRoom(msg.Room, false)
	if rm == nil {
		return domain.ErrUserNotPresent
	}
	defer rm.mu.Unlock()

	if !rm.hasUser(msg.Author) {
		return domain.ErrUserNotPresent
	}
	storeLocked(rm, msg)
	r.fanOutLocked(ctx, rm, domain.NewMessageEvent(msg))
	r.dropIfEmptyLocked(rm)
	return nil
}

// React adds or removes username's emoji reaction and broadcasts the emoji's
// resulting user list, which is empty after the last removal. It returns that
// list.
func (r *RoomRegistry) React(ctx context.Context, name domain.RoomName, id domain.MessageID, emoji, username string, add bool) ([]string, error) {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return nil, domain.ErrUserNotPresent
	}
	defer rm.mu.Unlock()

	if !rm.hasUser(username) {
		return nil, domain.ErrUserNotPresent
	}
	msg, ok := rm.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}

	if add {
		msg.Reactions.Add(emoji, username)
	} else if !msg.Reactions.Remove(emoji, username) {
		return nil, domain.ErrReactionNotFound
	}

	users := msg.Reactions.Users(emoji)
	r.fanOutLocked(ctx, rm, domain.NewReactionUpdateEvent(id, emoji, users))
	r.dropIfEmptyLocked(rm)
	return users, nil
}

func (r *RoomRegistry) Online(name domain.RoomName) []string {
	rm := r.lockRoom(name, false)
	if rm == nil {
		return []string{}
	}
	defer rm.mu.Unlock()
	return rm.online()
}

func (r *RoomRegistry) Stats() ports.RegistryStats {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	stats := ports.RegistryStats{}
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.closed {
			stats.Rooms++
			stats.Connections += len(rm.conns)
		}
		rm.mu.Unlock()
	}
	return stats
}

// fanOutLocked sends event to every connection in rm. Connections whose send
// fails are removed once the pass completes, and each removal is announced
// with a leave event, which may in turn shed more dead connections.
func (r *RoomRegistry) fanOutLocked(ctx context.Context, rm *room, event domain.Event) {
	pending := []domain.Event{event}
	for len(pending) > 0 {
		ev := pending[0]
		pending = pending[1:]

		for _, conn := range r.deliverLocked(ctx, rm, ev) {
			if _, ok := rm.remove(conn.ID); !ok {
				continue
			}
			r.metrics.SendFailed(rm.name)
			r.metrics.ConnectionLeft(rm.name)
			r.logger.Infow("dropping connection after failed send", "room", rm.name, "user", conn.Username, "conn_id", conn.ID)
			_ = conn.Transport.Close(closeGoingAway, "send failed")
			pending = append(pending, domain.NewLeaveEvent(conn.Username, rm.online()))
		}
	}
}

const closeGoingAway = 1001

func (r *RoomRegistry) deliverLocked(ctx context.Context, rm *room, event domain.Event) []*domain.Connection {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Errorw("failed to encode event", "room", rm.name, "type", event.EventType(), "error", err)
		return nil
	}

	start := time.Now()
	var failed []*domain.Connection
	for _, id := range rm.order {
		conn := rm.conns[id]
		sendCtx, cancel := r.sendContext(ctx)
		err := conn.Transport.Send(sendCtx, payload)
		cancel()
		if err != nil {
			r.logger.Debugw("send failed", "room", rm.name, "conn_id", id, "error", err)
			failed = append(failed, conn)
		}
	}
	r.metrics.EventBroadcast(event.EventType(), len(rm.order), time.Since(start))
	return failed
}

func (r *RoomRegistry) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.sendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.sendTimeout)
}
