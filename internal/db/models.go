package db

import (
	"time"

	"gorm.io/datatypes"
)

// Personality maps a trait axis (openness, conscientiousness, extraversion,
// agreeableness, neuroticism) to a value normalized to [0,1].
type Personality map[string]float64

// User table. Profile fields are mutated only by the owning principal.
type User struct {
	ID           uint64                          `gorm:"primaryKey;autoIncrement"`
	Name         string                          `gorm:"size:64;not null"`
	Email        string                          `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string                          `gorm:"size:255;not null"`
	Age          int                             `gorm:"not null;default:0"`
	Bio          string                          `gorm:"type:text"`
	Interests    datatypes.JSONSlice[string]     `gorm:"type:json"`
	Personality  datatypes.JSONType[Personality] `gorm:"type:json"`
	Photos       datatypes.JSONSlice[string]     `gorm:"type:json"`
	CreatedAt    time.Time                       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time                       `gorm:"autoUpdateTime"`
}

// Like is a directional, immutable "user liked target" fact.
//
// Composite PK: (UserID, TargetID)
//   - One row per direction; re-liking is an insert-or-ignore.
//
// Indexes:
//   - idx_likes_target_created(target_id, created_at)
//     Serves "who liked me" lists and counts.
type Like struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_likes_target_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_target_created,priority:2"`
}

type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchUnmatched MatchStatus = "unmatched"
	MatchBlocked   MatchStatus = "blocked"
)

// Match is the normalized pair (UserAID < UserBID). The unique pair index is
// what makes match creation exactly-once: a second mutual like upserts the
// same row back to active instead of inserting a new one.
type Match struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement"`
	UserAID   uint64      `gorm:"column:user_a_id;not null;uniqueIndex:idx_matches_pair,priority:1"`
	UserBID   uint64      `gorm:"column:user_b_id;not null;uniqueIndex:idx_matches_pair,priority:2;index:idx_matches_user_b"`
	Status    MatchStatus `gorm:"size:16;not null"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

// HasParticipant reports whether userID is one side of the match.
func (m Match) HasParticipant(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Partner returns the other side of the match for userID.
func (m Match) Partner(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// Chat exists at most once per match (unique match_id).
type Chat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MatchID   uint64    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is append-only; only ReadAt is ever stamped afterwards.
type Message struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	ChatID    uint64     `gorm:"not null;index:idx_messages_chat_id,priority:1"`
	SenderID  uint64     `gorm:"not null"`
	Content   string     `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	ReadAt    *time.Time
}

// PhotoReveal holds one participant's current consent for a match.
// Composite PK: (MatchID, UserID); re-setting overwrites consent and timestamp.
type PhotoReveal struct {
	MatchID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserID     uint64    `gorm:"primaryKey;autoIncrement:false"`
	Consent    bool      `gorm:"not null"`
	RevealedAt time.Time `gorm:"not null"`
}

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{&User{}, &Like{}, &Match{}, &Chat{}, &Message{}, &PhotoReveal{}}
}
