// Package models contains the persistence-level types shared by server
// repositories and services.
package models

import (
	"database/sql"
	"time"
)

// Turn is one stored message in a conversation, user- or bot-authored.
// Text and FullAnswer hold crypto-at-rest bundles, never plaintext.
// FullAnswer is present only on bot turns; ReadAt is stamped only after a
// successful authorized retrieval of FullAnswer.
type Turn struct {
	MessageID    string
	UserID       int64
	ChatID       int64
	Text         sql.NullString
	IsBotMessage bool
	SentAt       time.Time
	DeliveredAt  sql.NullTime
	ReadAt       sql.NullTime
	FullAnswer   sql.NullString
}
