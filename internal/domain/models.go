// Package domain defines the persisted record shapes shared by every
// session: user profiles, the global message log, and the derived Chat
// view. The JSON field names deliberately match the flat-store layout
// that earlier clients wrote (camelCase), so documents remain readable
// across versions.
package domain

// Message type discriminators.
const (
	MessageText    = "text"
	MessageImage   = "image"
	MessageSticker = "sticker"
	MessageSystem  = "system"
	MessageGift    = "gift"
)

// Chat type discriminators.
const (
	ChatPrivate = "private"
	ChatGroup   = "group"
	ChatBot     = "bot"
	ChatChannel = "channel"
)

// Well-known bot identities. These chats are materialized for every
// viewer even before any message exists.
const (
	BotAI      = "ai-bot"
	BotService = "spark_service"
)

// SyntheticIDPrefix marks locally created channel/group IDs so the
// projector can tell them apart from real phone numbers.
const SyntheticIDPrefix = "new_"

// User is one row of the shared user directory, keyed by phone number.
// A record is mutated only by its owner, with one exception: a paid
// message credits the receiver's star balance on behalf of the sender.
type User struct {
	PhoneNumber  string `json:"phoneNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Username     string `json:"username,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	IsPremium    bool   `json:"isPremium"`
	Stars        int    `json:"stars"`
	Bio          string `json:"bio,omitempty"`
	IsDev        bool   `json:"isDev,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	StatusEmoji  string `json:"statusEmoji,omitempty"`
	Wallpaper    string `json:"wallpaper,omitempty"`

	// MessagePrice > 0 makes inbound messages cost that many stars.
	MessagePrice int `json:"messagePrice,omitempty"`
}

// DisplayName joins first and last name for chat list rendering.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Message is one entry of the global append-mostly message log.
// Records are immutable once appended; the only destructive operation
// is physical removal by id. ReceiverID is the counterpart identity:
// a phone number, a bot id, or a synthetic channel/group id.
type Message struct {
	ID         string         `json:"id"`
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId,omitempty"`
	Text       string         `json:"text,omitempty"`
	ImageURL   string         `json:"imageUrl,omitempty"`
	Timestamp  int64          `json:"timestamp"` // unix milliseconds
	IsRead     bool           `json:"isRead"`
	Type       string         `json:"type"`
	Views      int            `json:"views,omitempty"`
	Reactions  map[string]int `json:"reactions,omitempty"`
}

// PartnerOf returns the other participant of the message from the
// viewer's perspective, or "" when the viewer is not a participant.
func (m Message) PartnerOf(viewerID string) string {
	switch viewerID {
	case m.SenderID:
		return m.ReceiverID
	case m.ReceiverID:
		return m.SenderID
	default:
		return ""
	}
}

// Preview returns the text shown in the chat list for this message.
func (m Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Type == MessageSticker {
		return "Sticker"
	}
	return "Media"
}

// Chat is one conversation as seen by a single viewer. It is derived
// from the ledger plus the directory on every reconciliation and never
// persisted; channel/group metadata lives only in session state and is
// carried forward between recomputes.
type Chat struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	LastMessage string    `json:"lastMessage,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	IsOnline    bool      `json:"isOnline,omitempty"`
	Type        string    `json:"type"`
	Messages    []Message `json:"messages"`

	// Channel/group only.
	Subscribers int    `json:"subscribers,omitempty"`
	Description string `json:"description,omitempty"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	Link        string `json:"link,omitempty"`
	Privacy     string `json:"privacy,omitempty"`

	// Bot only: whether the viewer pressed START (any message exists).
	HasStarted bool `json:"hasStarted,omitempty"`
}

// LastTimestamp returns the timestamp of the newest message, or 0 for
// an empty chat. Chats with no messages sort after all others.
func (c Chat) LastTimestamp() int64 {
	if len(c.Messages) == 0 {
		return 0
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}

// IsSynthetic reports whether id denotes a locally created channel or
// group rather than a registered user or bot.
func IsSynthetic(id string) bool {
	return len(id) > len(SyntheticIDPrefix) && id[:len(SyntheticIDPrefix)] == SyntheticIDPrefix
}
