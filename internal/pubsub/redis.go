package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/game"
)

const (
	ChannelPrefix    = "room:"
	DefaultQueueSize = 1024

	kindEvent   = "event"
	kindRelease = "release"
)

// LocalHub is the in-process fan-out the bus delivers into.
type LocalHub interface {
	Subscribe(roomCode, connID string)
	SendToConnection(connID string, msg internal.Message[any])
	BroadcastRaw(roomCode string, payload []byte)
	ReleaseRoom(roomCode string, connIDs []string)
}

type envelope struct {
	Kind    string          `json:"kind"`
	Room    string          `json:"room"`
	Frame   json.RawMessage `json:"frame,omitempty"`
	ConnIDs []string        `json:"connIds,omitempty"`
}

type Config struct {
	RedisClient *redis.Client
	Hub         LocalHub
	Logger      *zap.Logger
	QueueSize   int
}

var _ game.Broadcaster = (*RoomBus)(nil)

// RoomBus is a game.Broadcaster that publishes room events on the Redis
// channel room:<code> and delivers what it receives on room:* to the local
// hub. When the outbound queue is full envelopes are delivered locally only. Releases travel on the same channel as events, so a connection is
// never detached before the events broadcast ahead of its release.
//
// Publishing happens on the Run goroutine; callers only enqueue.
type RoomBus struct {
	client   *redis.Client
	hub      LocalHub
	logger   *zap.Logger
	outbound chan envelope

	ready     chan struct{}
	readyOnce sync.Once
}

func New(cfg *Config) (*RoomBus, error) {
	if cfg == nil {
		return nil, errors.New("room bus config is required")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("hub is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &RoomBus{
		client:   cfg.RedisClient,
		hub:      cfg.Hub,
		logger:   logger.Named("roombus"),
		outbound: make(chan envelope, size),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the pattern subscription is confirmed.
func (b *RoomBus) Ready() <-chan struct{} {
	return b.ready
}

func (b *RoomBus) Subscribe(roomCode, connID string) {
	b.hub.Subscribe(roomCode, connID)
}

func (b *RoomBus) SendToConnection(connID string, msg internal.Message[any]) {
	b.hub.SendToConnection(connID, msg)
}

func (b *RoomBus) BroadcastToRoom(roomCode string, msg internal.Message[any]) {
	frame, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to encode room event", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.enqueue(envelope{Kind: kindEvent, Room: roomCode, Frame: frame})
}

func (b *RoomBus) ReleaseRoom(roomCode string, connIDs []string) {
	b.enqueue(envelope{Kind: kindRelease, Room: roomCode, ConnIDs: connIDs})
}

func (b *RoomBus) enqueue(env envelope) {
	select {
	case b.outbound <- env:
	default:
		// other instances miss it, local members still get it
		b.logger.Warn("room bus queue full, delivering locally", zap.String("room", env.Room), zap.String("kind", env.Kind))
		b.deliver(env)
	}
}

// Run subscribes to every room channel and publishes queued envelopes until
// ctx is done.
func (b *RoomBus) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to room channels: %w", err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info("room bus subscribed", zap.String("pattern", ChannelPrefix+"*"))

	incoming := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil

		case env := <-b.outbound:
			b.publish(ctx, env)

		case msg, ok := <-incoming:
			if !ok {
				return nil
			}
			b.handle(msg)
		}
	}
}

func (b *RoomBus) publish(ctx context.Context, env envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("failed to encode envelope", zap.String("room", env.Room), zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, ChannelPrefix+env.Room, payload).Err(); err != nil {
		b.logger.Warn("publish failed, delivering locally",
			zap.String("room", env.Room),
			zap.String("kind", env.Kind),
			zap.Error(err),
		)
		b.deliver(env)
	}
}

func (b *RoomBus) handle(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		b.logger.Debug("dropping malformed envelope", zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	if env.Room == "" {
		env.Room = strings.TrimPrefix(msg.Channel, ChannelPrefix)
	}
	b.deliver(env)
}

func (b *RoomBus) deliver(env envelope) {
	switch env.Kind {
	case kindEvent:
		b.hub.BroadcastRaw(env.Room, env.Frame)
	case kindRelease:
		b.hub.ReleaseRoom(env.Room, env.ConnIDs)
	default:
		b.logger.Debug("unknown envelope kind", zap.String("kind", env.Kind))
	}
}
