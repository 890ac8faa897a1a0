package models

// Credentials is the login form
type Credentials struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6"`
}

// Registration is the sign-up form. ConfirmPassword never leaves the client.
type Registration struct {
	Name            string `json:"name" validate:"min=3"`
	Email           string `json:"email" validate:"email"`
	Password        string `json:"password" validate:"min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"min=6,eqfield=Password"`
}

// RegisterPayload is what is actually sent to POST /register
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Payload drops the confirmation field.
func (r Registration) Payload() RegisterPayload {
	return RegisterPayload{Name: r.Name, Email: r.Email, Password: r.Password}
}

// EmailRequest carries only an email (OTP send/resend, link verification,
// password reset request)
type EmailRequest struct {
	Email string `json:"email" validate:"email"`
}

// OTPVerification is the second-factor code submission
type OTPVerification struct {
	Email string `json:"email" validate:"email"`
	OTP   string `json:"otp" validate:"otp"`
}

// OTPCode is the code typed into the second-factor dialog
type OTPCode struct {
	OTP string `json:"otp" validate:"otp"`
}

// MethodChoice selects the second-factor channel
type MethodChoice struct {
	Method string `json:"method" validate:"oneof=computer movil"`
}

// TokenRequest completes a link-based email verification
type TokenRequest struct {
	Token string `json:"token" validate:"notblank"`
}

// PasswordReset sets a new password through an emailed token
type PasswordReset struct {
	NewPassword string `json:"newPassword" validate:"min=8,lower,upper,digit,special"`
}

// PasswordChange is the signed-in password change form
type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"min=8,lower,upper,digit,special"`
}

// AuthStatus is the body of GET /login/status
type AuthStatus struct {
	IsAuthenticated *bool `json:"isAuthenticated"`
}

// AdminStatus is the body of GET /admin/status
type AdminStatus struct {
	IsAdmin bool `json:"isAdmin"`
}

// Message is the generic `{msg}` success body
type Message struct {
	Msg     string `json:"msg,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns whichever message field is set.
func (m Message) Text() string {
	if m.Msg != "" {
		return m.Msg
	}
	return m.Message
}
