package authapi

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Response messages are part of the API contract.
const (
	msgRegistered        = "User registered successfully"
	msgAlreadyRegistered = "Already registered"
	msgInvalidLogin      = "Invalid email or password"
	msgNoRefreshToken    = "No refresh token in cookies"
	msgInvalidRefresh    = "Invalid token, please log in again"
	msgExpiredRefresh    = "Token expired, please log in again"
	msgUnauthorized      = "Unauthorized"
	msgInvalidBody       = "Invalid request body"
	msgInternal          = "Internal Server Error"
)
