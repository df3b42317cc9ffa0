package types

// Notification is any JSON frame received on the notification stream. The
// backend sends job events, registration acks and registration errors over
// the same socket.
type Notification struct {
	PrintJob *PrintJob `json:"print_job,omitempty"`
	Status   string    `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// StreamRegistration is the first frame the client writes so the backend can
// route job events to this socket.
type StreamRegistration struct {
	ClientID string `json:"client_id"`
	Token    string `json:"token"`
}
