package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStatus is the moderation state of a profile.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Account holds the credentials created at provisioning.
// Its ID is shared with the user's Profile.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Profile is a user's discoverable identity. Only its owner mutates it and
// rows are never hard-deleted.
type Profile struct {
	ID                 string             `gorm:"primaryKey;size:36" json:"id"`
	Email              string             `gorm:"size:128" json:"email,omitempty"`
	FullName           string             `gorm:"size:128" json:"full_name"`
	Gender             string             `gorm:"size:32" json:"gender,omitempty"`
	Age                int                `json:"age"`
	Department         string             `gorm:"size:128" json:"department"`
	AcademicYear       string             `gorm:"size:32" json:"academic_year"`
	RollNumber         string             `gorm:"size:32" json:"roll_number,omitempty"`
	Bio                string             `gorm:"type:text" json:"bio"`
	Interests          []string           `gorm:"serializer:json;type:text" json:"interests"`
	ProfilePictureURL  string             `gorm:"size:512" json:"profile_picture_url,omitempty"`
	IsProfileComplete  bool               `gorm:"not null;default:false" json:"is_profile_complete"`
	VerificationStatus VerificationStatus `gorm:"size:16;not null;default:pending" json:"verification_status"`
	CreatedAt          time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDiscoverable reports whether name, department, cohort and bio are all set.
func (p Profile) IsDiscoverable() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.Department) != "" &&
		strings.TrimSpace(p.AcademicYear) != "" &&
		strings.TrimSpace(p.Bio) != ""
}

// Decision is a persisted like or super like from liker to liked.
//
// Composite PK: (LikerID, LikedID)
//   - At most one row per directed pair; inserts use ON CONFLICT DO NOTHING
//     so repeated likes never duplicate the edge.
//
// Indexes:
//   - idx_liked_created_liker(liked_id, created_at DESC, liker_id)
//     Serves "who liked me" lists with cursor pagination.
//
// Skips are never stored here.
type Decision struct {
	LikerID     string    `gorm:"primaryKey;size:36" json:"liker_id"`
	LikedID     string    `gorm:"primaryKey;size:36;index:idx_liked_created_liker,priority:1" json:"liked_id"`
	IsSuperLike bool      `gorm:"not null;default:false" json:"is_super_like"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_liked_created_liker,priority:2,sort:desc" json:"created_at"`
}

func (Decision) TableName() string { return "user_likes" }

// BeforeCreate stores CreatedAt at millisecond precision, the precision of
// liked-you cursors, so a page boundary never falls inside a millisecond.
func (d *Decision) BeforeCreate(tx *gorm.DB) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = tx.NowFunc()
	}
	d.CreatedAt = d.CreatedAt.UTC().Truncate(time.Millisecond)
	return nil
}

// Match pairs two users. User1ID < User2ID always holds, so (A,B) and (B,A)
// collapse onto the same unique key.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	User1ID   string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1" json:"user1_id"`
	User2ID   string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2;index" json:"user2_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *Match) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// HasUser reports whether userID is one of the two participants.
func (m Match) HasUser(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the counterpart of userID.
func (m Match) OtherUser(userID string) (string, bool) {
	return other(m.User1ID, m.User2ID, userID)
}

// Conversation is created alongside its Match and keyed by the same pair.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MatchID   string    `gorm:"size:36;uniqueIndex" json:"match_id"`
	User1ID   string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair,priority:1" json:"user1_id"`
	User2ID   string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair,priority:2;index" json:"user2_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c Conversation) HasUser(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

func (c Conversation) OtherUser(userID string) (string, bool) {
	return other(c.User1ID, c.User2ID, userID)
}

// Message belongs to exactly one conversation. IsRead only ever moves from
// false to true.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index:idx_message_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"size:36;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_message_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func other(a, b, userID string) (string, bool) {
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&Account{}, &Profile{}, &Decision{}, &Match{}, &Conversation{}, &Message{}}
}

// CanonicalPair orders two user ids so the smaller comes first.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
