// Package services – chat projection
//
// This file implements the pure recompute that turns the global
// message ledger into one viewer's chat list. It never writes
// anywhere: the ledger and directory are inputs, session-local
// channel/group attributes are carried forward from the previous
// projection, and the result replaces the viewer's list wholesale.
package services

import (
	"net/url"
	"sort"

	"github.com/sparkchat/sparkd/internal/domain"
)

// botStartPlaceholder is shown as the last message of a bot chat the
// viewer has not started yet.
const botStartPlaceholder = "Нажмите START для начала"

// botDefaults returns the always-materialized bot chats in fixed
// order. Fresh copies each call so callers can mutate freely.
func botDefaults() []domain.Chat {
	return []domain.Chat{
		{
			ID:          domain.BotAI,
			Name:        "Spark AI",
			AvatarURL:   "https://ui-avatars.com/api/?name=Spark+AI&background=0b99ff&color=fff",
			LastMessage: botStartPlaceholder,
			Type:        domain.ChatBot,
			Messages:    []domain.Message{},
		},
		{
			ID:          domain.BotService,
			Name:        "Spark Service",
			AvatarURL:   "https://ui-avatars.com/api/?name=Service&background=22c55e&color=fff",
			LastMessage: botStartPlaceholder,
			UnreadCount: 1,
			Type:        domain.ChatBot,
			Messages:    []domain.Message{},
		},
	}
}

// DirectoryLookup resolves a phone number to its directory record.
type DirectoryLookup func(id string) (*domain.User, bool)

// Project recomputes the viewer's chat list from the ledger.
//
// Partner partition preserves ledger order within each chat. Bot chats
// come first and always exist; a bot chat with messages flips
// hasStarted. Remaining partners resolve display data through the
// directory, falling back to the raw id, with prior session state
// overriding name, avatar, and type and carrying the channel/group
// attributes the ledger knows nothing about. Prior chats that matched
// no partition (locally created channels, deleted conversations) are
// kept as-is. The result is ordered newest-first by last message
// timestamp; chats without messages sink to the end, ties keep their
// build order.
func Project(viewer string, ledger []domain.Message, lookup DirectoryLookup, prior []domain.Chat) []domain.Chat {
	byPartner := make(map[string][]domain.Message)
	var order []string
	for _, m := range ledger {
		partner := m.PartnerOf(viewer)
		if partner == "" {
			continue
		}
		if _, ok := byPartner[partner]; !ok {
			order = append(order, partner)
		}
		byPartner[partner] = append(byPartner[partner], m)
	}

	priorByID := make(map[string]domain.Chat, len(prior))
	for _, c := range prior {
		priorByID[c.ID] = c
	}

	out := make([]domain.Chat, 0, len(order)+2)

	for _, bot := range botDefaults() {
		msgs := byPartner[bot.ID]
		if len(msgs) > 0 {
			bot.Messages = msgs
			bot.HasStarted = true
			bot.LastMessage = msgs[len(msgs)-1].Text
			if bot.LastMessage == "" {
				bot.LastMessage = "Media"
			}
			bot.UnreadCount = unreadFrom(msgs, bot.ID, viewer)
		}
		out = append(out, bot)
	}

	for _, partner := range order {
		if partner == domain.BotAI || partner == domain.BotService {
			continue
		}
		msgs := byPartner[partner]

		chat := domain.Chat{
			ID:       partner,
			Name:     partner,
			Type:     domain.ChatPrivate,
			Messages: msgs,
		}
		chat.AvatarURL = "https://ui-avatars.com/api/?name=" + url.QueryEscape(partner)
		if domain.IsSynthetic(partner) {
			chat.Type = domain.ChatChannel
		}
		if u, ok := lookup(partner); ok {
			chat.Name = u.DisplayName()
			chat.AvatarURL = u.AvatarURL
		}
		if prev, ok := priorByID[partner]; ok {
			chat.Name = prev.Name
			if prev.AvatarURL != "" {
				chat.AvatarURL = prev.AvatarURL
			}
			chat.Type = prev.Type
			chat.Subscribers = prev.Subscribers
			chat.IsAdmin = prev.IsAdmin
			chat.Description = prev.Description
			chat.Link = prev.Link
			chat.Privacy = prev.Privacy
		}
		if len(msgs) > 0 {
			chat.LastMessage = msgs[len(msgs)-1].Preview()
		}
		chat.UnreadCount = unreadFrom(msgs, partner, viewer)

		out = append(out, chat)
	}

	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[c.ID] = struct{}{}
	}
	for _, c := range prior {
		if _, ok := seen[c.ID]; !ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastTimestamp() > out[j].LastTimestamp()
	})
	return out
}

// unreadFrom counts partner-authored messages the viewer has not read.
func unreadFrom(msgs []domain.Message, partner, viewer string) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID == partner && m.ReceiverID == viewer && !m.IsRead {
			n++
		}
	}
	return n
}
