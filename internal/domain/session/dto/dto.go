package dto

import "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"

// InitSessionRequest is the body of POST /api/v1/sessions
type InitSessionRequest struct {
	InstanceName string `json:"instance_name" validate:"required,max=100"`
}

// StatusWebhookRequest is the status notification posted by the backend
type StatusWebhookRequest struct {
	SessionID   string `json:"sessionId" validate:"required"`
	UserID      string `json:"userId"`
	Status      string `json:"status" validate:"required"`
	QRCode      string `json:"qrCode"`
	PhoneNumber string `json:"phoneNumber"`
	Error       string `json:"error"`
	Reason      string `json:"reason"`
	Timestamp   string `json:"timestamp"`
}

// ToUpdate converts the webhook body into a status update
func (r *StatusWebhookRequest) ToUpdate() entities.StatusUpdate {
	return entities.StatusUpdate{
		SessionID:   r.SessionID,
		Status:      entities.Status(r.Status),
		PhoneNumber: r.PhoneNumber,
		QRCode:      r.QRCode,
	}
}

// RotateResponse reports the outcome of a primary rotation
type RotateResponse struct {
	Rotated bool              `json:"rotated"`
	Primary *entities.Session `json:"primary_session,omitempty"`
}
