package api

import "time"

// CreateChannelRequest is the body of POST /api/v1/channels.
type CreateChannelRequest struct {
	Name string `json:"name"`
}

// UpdateChannelRequest is the body of PATCH /api/v1/channels/{id}.
type UpdateChannelRequest struct {
	Name *string `json:"name,omitempty"`
}

// ChannelResponse describes a channel together with the caller's role in it.
type ChannelResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	Role      string    `json:"role,omitempty"`
}

// ChannelListResponse is returned by GET /api/v1/channels.
type ChannelListResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

// AddMemberRequest adds an account by id or, when AccountID is empty, by username.
type AddMemberRequest struct {
	AccountID string `json:"account_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"` // по умолчанию member
}

// UpdateMemberRequest is the body of PATCH /api/v1/channels/{id}/members/{account_id}.
type UpdateMemberRequest struct {
	Role string `json:"role"`
}

// MemberResponse describes a membership.
type MemberResponse struct {
	JoinedAt  time.Time `json:"joined_at"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role"`
}

// MemberListResponse is returned by GET /api/v1/channels/{id}/members.
type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

// MessageRequest is the body for posting and editing a message.
type MessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse describes a message.
type MessageResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AccountID string    `json:"account_id"`
	Content   string    `json:"content"`
}

// MessageListResponse is returned by GET /api/v1/channels/{id}/messages.
// NextBefore is the cursor for the next (older) page, empty on the last page.
type MessageListResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextBefore string            `json:"next_before,omitempty"`
}
