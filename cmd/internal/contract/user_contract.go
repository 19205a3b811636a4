package contract

const TokenTypeBearer = "bearer"

type RegisterRequest struct {
	TelegramID string `json:"telegram_id" validate:"required,min=1,max=64,nospaces"`
	// bcrypt refuses anything past 72 bytes, not runes.
	Password string `json:"password" sanitize:"-" validate:"required,min=6,maxbytes=72"`
}

// LoginRequest mirrors the OAuth2 password form: the telegram ID travels
// as "username".
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" sanitize:"-" validate:"required"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	TelegramID string `json:"telegram_id"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *UserResponse `json:"user"`
}
