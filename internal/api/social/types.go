package social

import (
	"time"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/session"
)

type ProvisionAccountRequest struct {
	Email    string `json:"email" validate:"required,campus_email"`
	Password string `json:"password" validate:"required,password"`
}

type ProvisionAccountResponse struct {
	UserID  string     `json:"user_id"`
	Profile db.Profile `json:"profile"`
}

type GetProfileRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type ProfileResponse struct {
	Profile db.Profile `json:"profile"`
}

// UpdateProfileRequest is a partial update: nil fields are left unchanged.
type UpdateProfileRequest struct {
	UserID            string    `json:"user_id" validate:"required"`
	FullName          *string   `json:"full_name,omitempty" validate:"omitempty,max=128"`
	Gender            *string   `json:"gender,omitempty" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	Age               *int      `json:"age,omitempty" validate:"omitempty,min=16,max=100"`
	Department        *string   `json:"department,omitempty" validate:"omitempty,max=128"`
	AcademicYear      *string   `json:"academic_year,omitempty" validate:"omitempty,oneof=1st_year 2nd_year 3rd_year 4th_year mtech phd other"`
	RollNumber        *string   `json:"roll_number,omitempty" validate:"omitempty,roll_number"`
	Bio               *string   `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Interests         *[]string `json:"interests,omitempty" validate:"omitempty,max=20,dive,max=64"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty" validate:"omitempty,url"`
}

type DiscoverRequest struct {
	ViewerID string `json:"viewer_id" validate:"required"`
}

type DiscoverResponse struct {
	Profiles []db.Profile `json:"profiles"`
}

type RecordDecisionRequest struct {
	ActorID  string `json:"actor_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
	// Kind is like, super_like or skip.
	Kind string `json:"kind" validate:"required"`
}

type RecordDecisionResponse struct {
	Kind string `json:"kind"`
	// Created is false for a skip and for a like that was already stored.
	Created bool       `json:"created"`
	Match   *MatchView `json:"match,omitempty"`
	// Remaining is the size of the actor's discovery queue after the decision.
	Remaining int `json:"remaining"`
}

// MatchView is a match with the counterpart's profile resolved.
type MatchView struct {
	ID             string     `json:"id"`
	User1ID        string     `json:"user1_id"`
	User2ID        string     `json:"user2_id"`
	CreatedAt      time.Time  `json:"created_at"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Counterpart    db.Profile `json:"counterpart"`
}

type ListMatchesRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type ListMatchesResponse struct {
	Matches []MatchView `json:"matches"`
}

// ConversationView is one row of the conversation list.
type ConversationView struct {
	ID          string      `json:"id"`
	MatchID     string      `json:"match_id"`
	User1ID     string      `json:"user1_id"`
	User2ID     string      `json:"user2_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Counterpart db.Profile  `json:"counterpart"`
	LastMessage *db.Message `json:"last_message,omitempty"`
	UnreadCount int         `json:"unread_count"`
}

type ListConversationsRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type ListConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
}

type OpenConversationRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type OpenConversationResponse struct {
	Conversation ConversationView `json:"conversation"`
	Messages     []db.Message     `json:"messages"`
}

// CloseConversationRequest leaves the open conversation. ConversationID
// guards against closing a conversation opened later by another client.
type CloseConversationRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type CloseConversationResponse struct {
	Closed bool `json:"closed"`
}

type SendMessageRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
	Content        string `json:"content"`
}

type SendMessageResponse struct {
	Message db.Message `json:"message"`
}

type ListLikedYouRequest struct {
	RecipientUserID string  `json:"recipient_user_id" validate:"required"`
	PaginationToken *string `json:"pagination_token,omitempty"`
}

type Liker struct {
	ActorID       string `json:"actor_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
	IsSuperLike   bool   `json:"is_super_like"`
}

type ListLikedYouResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

type CountLikedYouRequest struct {
	RecipientUserID string `json:"recipient_user_id" validate:"required"`
}

type CountLikedYouResponse struct {
	Count uint64 `json:"count"`
}

type PollNotificationsRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type PollNotificationsResponse struct {
	Notifications []session.Notification `json:"notifications"`
}

type EndSessionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type EndSessionResponse struct {
	Ended bool `json:"ended"`
}
