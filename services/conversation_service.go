package services

import (
	"context"
	"fmt"
	"time"

	"doclink/contract"
	"doclink/domain"
	"doclink/errors"
)

// IConversationService is the request/response read path: conversation
// lists, history and unread counts reconstructed from the durable store
// for clients that are not live or are loading their first page.
type IConversationService interface {
	ListConversations(userID string) ([]domain.Conversation, error)
	History(ctx context.Context, cmd domain.HistoryCommand) ([]domain.Message, *string, error)
	UnreadCount(userID string) (int, error)
}

type ConversationService struct {
	messages contract.IMessageRepository
	graph    contract.IConnectionGraph
}

func NewConversationService(messages contract.IMessageRepository, graph contract.IConnectionGraph) *ConversationService {
	return &ConversationService{messages: messages, graph: graph}
}

func (s *ConversationService) ListConversations(userID string) ([]domain.Conversation, error) {
	conversations, err := s.messages.Conversations(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return conversations, nil
}

// History returns one page of the conversation and, as a side effect,
// marks every unread partner->user message as read. The returned page
// reflects the read flags as they were when fetched; the transition is
// one-way and never reverts.
func (s *ConversationService) History(_ context.Context, cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	if _, err := domain.NewRoomID(cmd.UserID, cmd.PartnerID); err != nil {
		return nil, nil, err
	}

	connected, err := s.graph.IsConnected(cmd.UserID, cmd.PartnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	if !connected {
		return nil, nil, errors.ErrNotConnected
	}

	messages, cursor, err := s.messages.History(cmd.UserID, cmd.PartnerID, cmd.Cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	if _, err := s.messages.MarkConversationRead(cmd.UserID, cmd.PartnerID, time.Now().UTC()); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	return messages, cursor, nil
}

func (s *ConversationService) UnreadCount(userID string) (int, error) {
	count, err := s.messages.UnreadCount(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return count, nil
}
