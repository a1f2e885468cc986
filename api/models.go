package api

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
