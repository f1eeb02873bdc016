package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"socialgraph/internal/model"
)

// Relay carries frames to every process so the one holding the recipient's
// connection can deliver it.
type Relay interface {
	Publish(ctx context.Context, recipientID int64, frame []byte) error
}

const relayPublishTimeout = time.Second

// Dispatcher pushes frames to connected recipients. Every delivery is best
// effort: an absent or closed recipient is routine and never an error.
type Dispatcher struct {
	registry Registry
	relay    Relay // nil for single-process delivery
	logger   *zap.Logger
}

type DispatcherOption func(*Dispatcher)

// WithRelay routes frames through r instead of the local registry.
func WithRelay(r Relay) DispatcherOption {
	return func(d *Dispatcher) { d.relay = r }
}

func NewDispatcher(registry Registry, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, logger: logger.Named("dispatcher")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DeliverMessage pushes a new_message frame carrying the stored message.
func (d *Dispatcher) DeliverMessage(recipientID int64, msg *model.Message) {
	d.dispatch(recipientID, TypeNewMessage, MessageFrame{Type: TypeNewMessage, Data: msg})
}

// DeliverNotificationPing pushes a payload-less new_notification frame.
func (d *Dispatcher) DeliverNotificationPing(recipientID int64) {
	d.dispatch(recipientID, TypeNewNotification, PingFrame{Type: TypeNewNotification})
}

// RelayTyping forwards a typing signal. Nothing is stored.
func (d *Dispatcher) RelayTyping(senderID, recipientID int64, conversationID uuid.UUID, isTyping bool) {
	t := typingType(isTyping)
	d.dispatch(recipientID, t, TypingFrame{
		Type:    t,
		Payload: TypingPayload{ConversationID: conversationID, SenderID: senderID},
	})
}

func (d *Dispatcher) dispatch(recipientID int64, frameType string, v interface{}) {
	frame, err := json.Marshal(v)
	if err != nil {
		d.logger.Error("encode frame", zap.String("type", frameType), zap.Error(err))
		return
	}

	if d.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		err := d.relay.Publish(ctx, recipientID, frame)
		cancel()
		if err == nil {
			return
		}
		d.logger.Warn("relay publish failed, delivering locally",
			zap.Int64("recipient_id", recipientID), zap.Error(err))
	}
	d.DeliverLocal(recipientID, frame)
}

// DeliverLocal sends an encoded frame to the recipient's connection in this
// process, if there is one.
func (d *Dispatcher) DeliverLocal(recipientID int64, frame []byte) {
	h, ok := d.registry.Lookup(recipientID)
	if !ok || !h.IsOpen() {
		return
	}
	if err := h.Send(frame); err != nil {
		level := zap.DebugLevel
		if errors.Is(err, ErrSendBufferFull) {
			level = zap.WarnLevel
		}
		if ce := d.logger.Check(level, "frame dropped"); ce != nil {
			ce.Write(zap.Int64("recipient_id", recipientID), zap.Error(err))
		}
	}
}
