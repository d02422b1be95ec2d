package models

import "time"

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message about a monitored symbol.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Symbol  string      `json:"symbol,omitempty"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}
