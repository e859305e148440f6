package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/common/uuid"
	"github.com/scythe504/sketchoff-backend/internal/game"
)

// GameService is the part of game.Service the gateway drives.
type GameService interface {
	Join(ctx context.Context, input *game.JoinInput) (*game.JoinOutput, error)
	Submit(ctx context.Context, input *game.SubmitInput) (*game.SubmitOutput, error)
	Disconnect(ctx context.Context, input *game.DisconnectInput)
}

var _ GameService = (*game.Service)(nil)

type Config struct {
	Hub     *Hub
	Service GameService
	IDs     uuid.UUID
	Logger  *zap.Logger

	// inbound messages per second and burst per connection
	RateLimit rate.Limit
	RateBurst int
}

// Gateway upgrades HTTP requests to websockets and routes inbound events to
// the game service.
type Gateway struct {
	hub       *Hub
	service   GameService
	ids       uuid.UUID
	logger    *zap.Logger
	validate  *validator.Validate
	upgrader  websocket.Upgrader
	rateLimit rate.Limit
	rateBurst int
}

func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("gateway config is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("hub is required")
	}
	if cfg.Service == nil {
		return nil, errors.New("game service is required")
	}

	g := &Gateway{
		hub:       cfg.Hub,
		service:   cfg.Service,
		ids:       cfg.IDs,
		logger:    cfg.Logger,
		validate:  validator.New(),
		rateLimit: cfg.RateLimit,
		rateBurst: cfg.RateBurst,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if g.ids == nil {
		g.ids = uuid.New()
	}
	if g.logger == nil {
		g.logger = zap.L()
	}
	g.logger = g.logger.Named("gateway")
	if g.rateLimit <= 0 {
		g.rateLimit = 10
	}
	if g.rateBurst <= 0 {
		g.rateBurst = 20
	}
	return g, nil
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// ServeHTTP upgrades the connection and serves it until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(g.ids.NewUUID(), g.hub, conn, rate.NewLimiter(g.rateLimit, g.rateBurst), g.logger)
	g.hub.register(c)
	g.logger.Info("client connected", zap.String("conn", c.id), zap.String("remote", r.RemoteAddr))

	g.hub.SendToConnection(c.id, internal.Message[any]{
		Type: internal.EventConnected,
		Data: internal.ConnectedData{Id: c.id},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go c.writePump()
	c.readPump(ctx, g.handleMessage)
	cancel()

	room := g.hub.unregister(c)
	if room != "" {
		g.service.Disconnect(context.Background(), &game.DisconnectInput{RoomCode: room, ConnectionID: c.id})
	}
	g.logger.Info("client disconnected", zap.String("conn", c.id), zap.String("room", room))
}

// handleMessage routes one inbound frame. Malformed frames are logged and
// dropped.
func (g *Gateway) handleMessage(ctx context.Context, c *Client, raw []byte) {
	var baseMsg internal.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &baseMsg); err != nil {
		c.logger.Debug("failed to parse message", zap.Error(err))
		return
	}

	switch baseMsg.Type {
	case internal.EventJoinRoom:
		var data internal.JoinRoomData
		if !g.decode(c, baseMsg, &data) {
			return
		}
		g.handleJoin(ctx, c, data)

	case internal.EventSubmitDrawing:
		var data internal.SubmitDrawingData
		if !g.decode(c, baseMsg, &data) {
			return
		}
		// scoring can take seconds; keep reading meanwhile. The rating
		// outlives the connection and is bounded by the scorer's timeout.
		go g.handleSubmit(context.WithoutCancel(ctx), c, data)

	default:
		c.logger.Debug("unknown message type", zap.String("type", baseMsg.Type))
	}
}

func (g *Gateway) decode(c *Client, msg internal.Message[json.RawMessage], into any) bool {
	if err := json.Unmarshal(msg.Data, into); err != nil {
		c.logger.Debug("malformed payload", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	if err := g.validate.Struct(into); err != nil {
		c.logger.Debug("invalid payload", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	return true
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, data internal.JoinRoomData) {
	if current := g.hub.RoomOf(c.id); current != "" && current != data.RoomCode {
		g.hub.SendToConnection(c.id, internal.Message[any]{Type: internal.EventErrorMsg, Data: internal.ErrMsgAlreadyJoined})
		return
	}

	_, err := g.service.Join(ctx, &game.JoinInput{
		RoomCode:     data.RoomCode,
		PlayerName:   data.Name,
		ConnectionID: c.id,
	})
	if err != nil {
		c.logger.Debug("join refused", zap.String("room", data.RoomCode), zap.Error(err))
	}
}

func (g *Gateway) handleSubmit(ctx context.Context, c *Client, data internal.SubmitDrawingData) {
	out, err := g.service.Submit(ctx, &game.SubmitInput{
		RoomCode:     data.RoomCode,
		ConnectionID: c.id,
		Image:        data.Image,
	})
	if err != nil {
		c.logger.Warn("submission failed", zap.String("room", data.RoomCode), zap.Error(err))
		return
	}
	if !out.Accepted {
		c.logger.Debug("submission ignored", zap.String("room", data.RoomCode))
	}
}
