package types

import (
	"strconv"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	Id         int64     `json:"id"`
	Nickname   string    `json:"nickname"`
	Email      string    `json:"email,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	Role       Role      `json:"role,omitempty"`
	Password   string    `json:"-"`
	LastOnline time.Time `json:"last_online,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type Project struct {
	Id          int64     `json:"id"`
	ExternalId  string    `json:"external_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerId     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// OnlineUser is the ephemeral presence record for a connected user. Display
// fields are snapshotted from the user at first connect and not refreshed on
// subsequent connects.
type OnlineUser struct {
	Id         int64     `json:"id"`
	Nickname   string    `json:"nickname"`
	FullName   string    `json:"full_name"`
	Avatar     string    `json:"avatar"`
	Email      string    `json:"email"`
	IsOnline   bool      `json:"is_online"`
	LastOnline time.Time `json:"last_online"`
}

func NewOnlineUser(u User) *OnlineUser {
	return &OnlineUser{
		Id:         u.Id,
		Nickname:   u.Nickname,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		Email:      u.Email,
		IsOnline:   true,
		LastOnline: time.Now().UTC(),
	}
}

// Notification is one entry in a user's notification feed. The server only
// serves, marks and clears the feed; entries are written by back-office
// tooling.
type Notification struct {
	Id          int64     `json:"id"`
	Content     string    `json:"content"`
	RecipientId int64     `json:"recipient_id"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation pins an entry in a user's chat sidebar. Exactly one of
// RecipientId (a direct conversation) or ProjectId (a project chat) is set.
type Conversation struct {
	Id          int64     `json:"id"`
	UserId      int64     `json:"user_id"`
	RecipientId *int64    `json:"recipient_id,omitempty"`
	ProjectId   *int64    `json:"project_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessageKind string

const (
	KindSystem  MessageKind = "SYSTEM"
	KindGlobal  MessageKind = "GLOBAL"
	KindPrivate MessageKind = "PRIVATE"
	KindProject MessageKind = "PROJECT"
)

func ParseMessageKind(s string) (MessageKind, bool) {
	switch MessageKind(s) {
	case KindSystem, KindGlobal, KindPrivate, KindProject:
		return MessageKind(s), true
	}
	return "", false
}

type Attachment struct {
	Id         int64     `json:"id"`
	Key        string    `json:"key"`
	UploadUrl  string    `json:"upload_url,omitempty"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	IsSuccess  bool      `json:"is_success"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// MessageBase holds the fields shared by all four message kinds.
type MessageBase struct {
	Id          int64        `json:"id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	IsDeleted   bool         `json:"is_deleted"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Message is the tagged union over the four message kinds. Consumers
// dispatch on the concrete type or on Kind, never on a shared base class.
type Message interface {
	Kind() MessageKind
	Base() *MessageBase
}

type SystemMessage struct {
	MessageBase
	// IsLasting exempts the message from the 24h "today" window.
	IsLasting bool `json:"is_lasting"`
}

func (m *SystemMessage) Kind() MessageKind  { return KindSystem }
func (m *SystemMessage) Base() *MessageBase { return &m.MessageBase }

type GlobalMessage struct {
	MessageBase
	SenderId int64 `json:"sender_id"`
}

func (m *GlobalMessage) Kind() MessageKind  { return KindGlobal }
func (m *GlobalMessage) Base() *MessageBase { return &m.MessageBase }

type PrivateMessage struct {
	MessageBase
	SenderId    int64 `json:"sender_id"`
	RecipientId int64 `json:"recipient_id"`
	PairId      int64 `json:"pair_id"`
}

func (m *PrivateMessage) Kind() MessageKind  { return KindPrivate }
func (m *PrivateMessage) Base() *MessageBase { return &m.MessageBase }

type ProjectMessage struct {
	MessageBase
	SenderId  int64 `json:"sender_id"`
	ProjectId int64 `json:"project_id"`
}

func (m *ProjectMessage) Kind() MessageKind  { return KindProject }
func (m *ProjectMessage) Base() *MessageBase { return &m.MessageBase }

// PairId derives the canonical id of a private conversation: the decimal
// digits of the smaller user id concatenated with those of the larger, so
// PairId(a, b) == PairId(b, a) for any pair.
func PairId(a, b int64) int64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	id, _ := strconv.ParseInt(strconv.FormatInt(lo, 10)+strconv.FormatInt(hi, 10), 10, 64)
	return id
}
