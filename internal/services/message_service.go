// Package services – MessageService
//
// This file implements MessageService, which owns the lifecycle of
// ledger entries: validated sends with the paid-message gate in front,
// sender-only deletes, read receipts, and the deferred assistant reply
// for the AI bot chat.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include chat identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sparkchat/sparkd/internal/ai"
	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/store"
)

// DefaultBotReplyDelay is how long after a send the assistant reply is
// appended, off the send path.
const DefaultBotReplyDelay = 800 * time.Millisecond

// Responder produces the assistant reply for the AI bot chat.
type Responder interface {
	GenerateResponse(ctx context.Context, history []ai.Turn, prompt string) string
}

// MessageService coordinates ledger writes and the paid-message gate.
type MessageService struct {
	Store     *store.Store
	Responder Responder
	Sessions  *SessionManager

	// BotReplyDelay defaults to DefaultBotReplyDelay when zero.
	BotReplyDelay time.Duration

	// MaxMessageRunes caps text length; zero disables the check.
	MaxMessageRunes int

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// SendInput is one send request against a chat.
type SendInput struct {
	Sender   string
	ChatID   string
	Type     string
	Text     string
	ImageURL string

	// Confirm acknowledges the receiver's message price.
	Confirm bool
}

// lastMessageID makes time-derived ids strictly increasing even when
// two sends land in the same millisecond.
var lastMessageID atomic.Int64

func nextMessageID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		prev := lastMessageID.Load()
		if ms <= prev {
			ms = prev + 1
		}
		if lastMessageID.CompareAndSwap(prev, ms) {
			return strconv.FormatInt(ms, 10)
		}
	}
}

func timeIDNow() string {
	return nextMessageID(time.Now())
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Send validates in, runs the paid gate against the receiver, and
// appends the message. Text sent to the AI bot also schedules the
// assistant reply. Both participants' sessions are invalidated.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	_, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", in.ChatID),
			attribute.String("message.type", in.Type),
		),
	)
	defer span.End()

	if in.ChatID == "" {
		return nil, ErrChatNotFound
	}
	if in.Type == "" {
		in.Type = domain.MessageText
	}
	in.Text = strings.TrimSpace(in.Text)
	switch in.Type {
	case domain.MessageText:
		if in.Text == "" {
			return nil, ErrEmptyMessage
		}
	case domain.MessageImage, domain.MessageSticker:
		if in.ImageURL == "" {
			return nil, ErrEmptyMessage
		}
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(in.Text) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	if err := s.payGate(in); err != nil {
		return nil, err
	}

	now := s.now()
	msg := domain.Message{
		ID:         nextMessageID(now),
		SenderID:   in.Sender,
		ReceiverID: in.ChatID,
		Text:       in.Text,
		ImageURL:   in.ImageURL,
		Timestamp:  now.UnixMilli(),
		Type:       in.Type,
		Views:      1,
	}
	if in.Type != domain.MessageText {
		msg.Text = ""
	}
	if err := repo.AppendMessage(s.Store, msg); err != nil {
		return nil, err
	}

	s.invalidate(in.Sender, in.ChatID)

	if in.ChatID == domain.BotAI && in.Type == domain.MessageText {
		s.scheduleBotReply(in.Sender, in.Text)
	}
	return &msg, nil
}

// payGate checks the receiver's message price and commits the star
// transfer. The debit and the credit land in one directory write, so a
// failed transfer leaves both balances as they were and nothing is
// appended.
func (s *MessageService) payGate(in SendInput) error {
	if domain.IsSynthetic(in.ChatID) || in.ChatID == domain.BotAI || in.ChatID == domain.BotService {
		return nil
	}
	receiver, err := repo.FindUserByPhone(s.Store, in.ChatID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	price := receiver.MessagePrice
	if price <= 0 || receiver.PhoneNumber == in.Sender || receiver.IsDev {
		return nil
	}

	sender, err := repo.FindUserByPhone(s.Store, in.Sender)
	if err != nil {
		return err
	}
	if sender.Stars < price {
		return ErrInsufficientStars
	}
	if !in.Confirm {
		return &ConfirmationRequiredError{Price: price}
	}

	err = repo.TransferStars(s.Store, in.Sender, in.ChatID, price)
	if errors.Is(err, repo.ErrInsufficientFunds) {
		return ErrInsufficientStars
	}
	return err
}

// scheduleBotReply appends the assistant answer after the configured
// delay. The reply is built from the full bot conversation so the
// model sees context, and lands pre-read.
func (s *MessageService) scheduleBotReply(viewer, prompt string) {
	delay := s.BotReplyDelay
	if delay <= 0 {
		delay = DefaultBotReplyDelay
	}
	time.AfterFunc(delay, func() {
		msgs, err := repo.MessagesForParticipant(s.Store, viewer)
		if err != nil {
			log.Error().Err(err).Msg("bot reply: read ledger")
			return
		}
		var history []ai.Turn
		for _, m := range msgs {
			if m.PartnerOf(viewer) != domain.BotAI {
				continue
			}
			role := "model"
			if m.SenderID == viewer {
				role = "user"
			}
			history = append(history, ai.Turn{Role: role, Text: m.Text})
		}

		text := "Извините, я не могу ответить прямо сейчас."
		if s.Responder != nil {
			text = s.Responder.GenerateResponse(context.Background(), history, prompt)
		}

		now := s.now()
		reply := domain.Message{
			ID:         nextMessageID(now),
			SenderID:   domain.BotAI,
			ReceiverID: viewer,
			Text:       text,
			Timestamp:  now.UnixMilli(),
			IsRead:     true,
			Type:       domain.MessageText,
		}
		if err := repo.AppendMessage(s.Store, reply); err != nil {
			log.Error().Err(err).Msg("bot reply: append")
			return
		}
		if s.Sessions != nil {
			s.Sessions.Invalidate(viewer)
		}
	})
}

// Delete physically removes a ledger entry. Only the sender may do it;
// deleting an already-gone message is not an error for them, but an
// unknown id is.
func (s *MessageService) Delete(ctx context.Context, viewer, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	_, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	m, err := repo.FindMessageByID(s.Store, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if m.SenderID != viewer {
		return ErrNotSender
	}
	if err := repo.DeleteMessageByID(s.Store, messageID); err != nil {
		return err
	}
	s.invalidate(m.SenderID, m.ReceiverID)
	return nil
}

// MarkChatRead flips read receipts on everything the chat partner sent
// to the viewer.
func (s *MessageService) MarkChatRead(ctx context.Context, viewer, chatID string) error {
	tr := otel.Tracer("services/MessageService")
	_, span := tr.Start(ctx, "MarkChatRead",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer span.End()

	if err := repo.MarkRead(s.Store, viewer, chatID); err != nil {
		return err
	}
	if s.Sessions != nil {
		s.Sessions.Invalidate(viewer)
	}
	return nil
}

// ListPage returns one page of the viewer's conversation with chatID
// in ledger order, plus the total count.
func (s *MessageService) ListPage(ctx context.Context, viewer, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	_, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	msgs, err := repo.MessagesForParticipant(s.Store, viewer)
	if err != nil {
		return nil, 0, err
	}
	conv := msgs[:0:0]
	for _, m := range msgs {
		if m.PartnerOf(viewer) == chatID {
			conv = append(conv, m)
		}
	}
	total := int64(len(conv))

	offset := (page - 1) * pageSize
	if offset >= len(conv) {
		return []domain.Message{}, total, nil
	}
	end := offset + pageSize
	if end > len(conv) {
		end = len(conv)
	}
	return conv[offset:end], total, nil
}

func (s *MessageService) invalidate(ids ...string) {
	if s.Sessions == nil {
		return
	}
	for _, id := range ids {
		s.Sessions.Invalidate(id)
	}
}
