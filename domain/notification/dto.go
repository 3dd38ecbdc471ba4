package notification

// WaitlistRecord is the inserted waitlist row carried by the trigger.
type WaitlistRecord struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

type NotifyRequest struct {
	Record WaitlistRecord `json:"record"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
