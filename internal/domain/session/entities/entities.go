package entities

import "time"

// Status is the lifecycle state of a WhatsApp session
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusQRPending    Status = "qr_pending"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusAuthFailed   Status = "auth_failed"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusInitializing, StatusQRPending, StatusConnected, StatusDisconnected, StatusAuthFailed:
		return true
	}
	return false
}

// MessageType selects the backend send operation
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeVideo    MessageType = "video"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument, MessageTypeVideo:
		return true
	}
	return false
}

// IsMedia reports whether t is sent through the media endpoint
func (t MessageType) IsMedia() bool {
	return t == MessageTypeImage || t == MessageTypeDocument || t == MessageTypeVideo
}

// Session is one linked WhatsApp device of a user
type Session struct {
	ID           uint       `json:"id"`
	UserID       uint       `json:"user_id"`
	InstanceName string     `json:"instance_name"`
	SessionID    string     `json:"session_id"`
	Status       Status     `json:"status"`
	QRCode       string     `json:"qr_code,omitempty"`
	QRExpiresAt  *time.Time `json:"qr_expires_at,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	IsPrimary    bool       `json:"is_primary"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Payload is the content of one outbound message
type Payload struct {
	Type     MessageType
	Text     string
	MediaURL string
	Caption  string
}

// Attempt records one session tried while sending
type Attempt struct {
	SessionID    uint   `json:"session_id"`
	InstanceName string `json:"instance_name"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// SendResult is returned when some session delivered the message
type SendResult struct {
	Session   Session
	MessageID string
	Attempts  []Attempt
}

// PrimaryInfo identifies the primary session in stats
type PrimaryInfo struct {
	ID           uint   `json:"id"`
	InstanceName string `json:"instance_name"`
}

// Stats summarises a user's sessions
type Stats struct {
	Total               int          `json:"total_sessions"`
	Connected           int          `json:"connected_sessions"`
	Disconnected        int          `json:"disconnected_sessions"`
	QRPending           int          `json:"qr_pending_sessions"`
	Primary             *PrimaryInfo `json:"primary_session"`
	AvailableForSending bool         `json:"available_for_sending"`
}

// InitResult is the backend answer to a session init
type InitResult struct {
	Status      Status
	QRCode      string
	PhoneNumber string
}

// BackendStatus is the backend view of a session
type BackendStatus struct {
	Exists      bool
	Status      string
	QRCode      string
	PhoneNumber string
	IsReady     bool
}

// DeliveryReceipt is the backend answer to a successful send
type DeliveryReceipt struct {
	MessageID string
	Timestamp int64
}

// StatusUpdate is a status notification pushed by the backend
type StatusUpdate struct {
	SessionID   string
	Status      Status
	PhoneNumber string
	QRCode      string
}

// StatusChangedEvent is published whenever the gateway changes a session status
type StatusChangedEvent struct {
	UserID       uint      `json:"user_id"`
	SessionID    uint      `json:"session_id"`
	InstanceName string    `json:"instance_name"`
	Status       Status    `json:"status"`
	Source       string    `json:"source"`
	OccurredAt   time.Time `json:"occurred_at"`
}
