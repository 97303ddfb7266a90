package domain

import "time"

// Session is a chat room: an ordered message log plus a participant set.
// Immutable after creation except through its subcollections; there is
// no deletion path.
type Session struct {
	ID        SessionID
	Name      string
	CreatedAt time.Time
}

// Participant records membership of a user in a session. Membership is
// keyed by (SessionID, UserID): joining twice refreshes the record
// instead of duplicating it.
type Participant struct {
	ID        ParticipantID
	SessionID SessionID
	UserID    UserID
	Username  string
	JoinedAt  time.Time
}

// Message is one entry in a session's log, immutable once created and
// ordered ascending by Timestamp. In practice exactly one of Text and
// MediaURL is set; the schema tolerates both.
type Message struct {
	ID             MessageID
	SessionID      SessionID
	SenderID       string
	SenderUsername string
	Text           string
	MediaURL       string
	Timestamp      time.Time
	IsAIMessage    bool
}
