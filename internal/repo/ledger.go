// Package repo implements the data access layer over the shared
// document store. This file provides repository functions for the
// global message ledger document.
package repo

import (
	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/store"
)

// AllMessages returns the whole ledger in stored (append) order.
func AllMessages(st *store.Store) ([]domain.Message, error) {
	var msgs []domain.Message
	_, err := st.Get(store.KeyMessages, &msgs)
	return msgs, err
}

// MessagesForParticipant returns the ledger entries in which viewerID
// is either side of the conversation, preserving stored order.
func MessagesForParticipant(st *store.Store, viewerID string) ([]domain.Message, error) {
	msgs, err := AllMessages(st)
	if err != nil {
		return nil, err
	}
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.PartnerOf(viewerID) != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindMessageByID returns the ledger entry with the given id or
// ErrNotFound.
func FindMessageByID(st *store.Store, id string) (*domain.Message, error) {
	msgs, err := AllMessages(st)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ID == id {
			m := msgs[i]
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// AppendMessage adds m to the end of the ledger. Existing entries are
// never reordered or rewritten.
func AppendMessage(st *store.Store, m domain.Message) error {
	return mutateDoc(st, store.KeyMessages, func(msgs []domain.Message) ([]domain.Message, error) {
		return append(msgs, m), nil
	})
}

// MarkRead flips isRead on every message authored by partnerID and
// addressed to viewerID. Read receipts are the one sanctioned
// mutation of an appended entry.
func MarkRead(st *store.Store, viewerID, partnerID string) error {
	return mutateDoc(st, store.KeyMessages, func(msgs []domain.Message) ([]domain.Message, error) {
		for i := range msgs {
			if msgs[i].SenderID == partnerID && msgs[i].ReceiverID == viewerID {
				msgs[i].IsRead = true
			}
		}
		return msgs, nil
	})
}

// DeleteMessageByID physically removes the entry with the given id.
// Deleting an absent id is a no-op.
func DeleteMessageByID(st *store.Store, id string) error {
	return mutateDoc(st, store.KeyMessages, func(msgs []domain.Message) ([]domain.Message, error) {
		for i := range msgs {
			if msgs[i].ID == id {
				return append(msgs[:i], msgs[i+1:]...), nil
			}
		}
		return msgs, nil
	})
}
