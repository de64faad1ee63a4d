package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"doclink/contract"
	"doclink/domain"
	"doclink/domain/event"
	"doclink/errors"
	"doclink/moderation"
)

// Dispatcher is the message dispatch pipeline: validate, authorize,
// moderate, persist, then fan out. The durable write always precedes any
// live delivery - delivery is best effort on top of a durable record,
// never the reverse.
type Dispatcher struct {
	log              *slog.Logger
	registry         contract.IRegistry
	messages         contract.IMessageRepository
	graph            contract.IConnectionGraph
	moderator        *moderation.Moderator // nil disables moderation
	maxContentLength int
	permanentSinks   []contract.EventSink
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	messages contract.IMessageRepository, graph contract.IConnectionGraph,
	moderator *moderation.Moderator, maxContentLength int) *Dispatcher {
	return &Dispatcher{
		log:              log,
		registry:         registry,
		messages:         messages,
		graph:            graph,
		moderator:        moderator,
		maxContentLength: maxContentLength,
	}
}

// Add registers permanent sinks that observe every persisted message
// regardless of room membership (search indexing, projections).
func (d *Dispatcher) Add(sinks ...contract.EventSink) {
	d.permanentSinks = append(d.permanentSinks, sinks...)
}

// Send runs one message through the pipeline and returns the persisted
// record. Errors are reported to the caller only, never broadcast, and no
// step is retried: resubmission is the client's concern.
func (d *Dispatcher) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > d.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}

	roomID, err := domain.NewRoomID(cmd.SenderID, cmd.RecipientID)
	if err != nil {
		return domain.Message{}, err
	}

	connected, err := d.graph.IsConnected(cmd.SenderID, cmd.RecipientID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	if !connected {
		return domain.Message{}, errors.ErrNotConnected
	}

	// Masking happens before the durable write so the record and every
	// live delivery agree on the content.
	if d.moderator != nil {
		content = d.moderator.Censor(content)
	}

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    cmd.SenderID,
		RecipientID: cmd.RecipientID,
		Content:     content,
		CreatedAt:   createdAt,
		Read:        false,
	}

	if err := d.messages.StoreMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	delivered := event.MessageDelivered{Message: msg}
	d.observe(ctx, delivered)

	// Membership is resolved now, after the persistence await: whatever was
	// known before the write may be stale. An empty room simply means the
	// message waits in the store for the read path.
	d.fanout(ctx, d.registry.SinksForRoom(roomID), delivered)

	return msg, nil
}

// NotifyTyping relays a transient typing signal to the other members of the
// room. A handle that is not a member is a silent no-op.
func (d *Dispatcher) NotifyTyping(ctx context.Context, h *domain.Handle, roomID domain.RoomID, typing bool) {
	if !d.registry.InRoom(h.ID, roomID) {
		return
	}
	evt := event.TypingChanged{Room: roomID, UserID: h.Identity, Typing: typing}
	d.fanout(ctx, d.registry.SinksForRoomExcept(roomID, h.ID), evt)
}

// BroadcastPresence announces a presence change to every live connection
// except the one it concerns.
func (d *Dispatcher) BroadcastPresence(ctx context.Context, h *domain.Handle, online bool) {
	evt := event.PresenceChanged{UserID: h.Identity, Online: online}
	d.fanout(ctx, d.registry.SinksExcept(h.ID), evt)
}

// fanout delivers one event to each sink, best effort: a slow or failed
// sink is logged and skipped, it never stalls the pipeline or its peers.
func (d *Dispatcher) fanout(ctx context.Context, sinks []contract.EventSink, e event.DomainEvent) {
	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			d.log.Warn("Sink delivery failed", "event", e.Name(), "error", err)
		}
	}
}

func (d *Dispatcher) observe(ctx context.Context, e event.DomainEvent) {
	for _, sink := range d.permanentSinks {
		if err := sink.Consume(ctx, e); err != nil {
			d.log.Warn("Permanent sink failed", "event", e.Name(), "error", err)
		}
	}
}
