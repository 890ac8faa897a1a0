package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// messages is keyed by "<Struct>.<json field>|<tag>".
var messages = map[string]string{
	"Credentials.email|email":  "Please enter a valid email address.",
	"Credentials.password|min": "Password must be at least 6 characters.",

	"Registration.name|min":                "El nombre de usuario debe tener al menos 3 caracteres.",
	"Registration.email|email":             "Por favor ingresa un correo electrónico válido.",
	"Registration.password|min":            "La contraseña debe tener al menos 6 caracteres.",
	"Registration.confirmPassword|min":     "La contraseña debe tener al menos 6 caracteres.",
	"Registration.confirmPassword|eqfield": "Las contraseñas no coinciden.",

	"EmailRequest.email|email": "Please enter a valid email address.",

	"OTPVerification.email|email": "No se pudo obtener el correo electrónico. Intenta iniciar sesión de nuevo.",
	"OTPVerification.otp|otp":     "El código debe tener 6 dígitos.",

	"OTPCode.otp|otp":             "El código debe tener 6 dígitos.",
	"MethodChoice.method|oneof":   "Selecciona un método de verificación válido.",
	"TokenRequest.token|notblank": "Token de verificación no encontrado.",

	"PasswordReset.newPassword|min":     "Password must be at least 8 characters long.",
	"PasswordReset.newPassword|lower":   "Password must contain at least one lowercase letter.",
	"PasswordReset.newPassword|upper":   "Password must contain at least one uppercase letter.",
	"PasswordReset.newPassword|digit":   "Password must contain at least one number.",
	"PasswordReset.newPassword|special": "Password must contain at least one special character.",

	"PasswordChange.oldPassword|required": "La contraseña anterior es requerida.",
	"PasswordChange.newPassword|min":      "La nueva contraseña debe tener al menos 8 caracteres.",
	"PasswordChange.newPassword|lower":    "Debe contener al menos una letra minúscula.",
	"PasswordChange.newPassword|upper":    "Debe contener al menos una letra mayúscula.",
	"PasswordChange.newPassword|digit":    "Debe contener al menos un número.",
	"PasswordChange.newPassword|special":  "Debe contener al menos un carácter especial (ej. !@#$%^&*).",

	"UserUpdate.name|notblank":      "El nombre no puede estar vacío.",
	"UserUpdate.email|notblank":     "Por favor, introduce un email válido.",
	"UserUpdate.email|email_simple": "Por favor, introduce un email válido.",
	"UserUpdate.role|oneof":         "El rol debe ser user o admin.",

	"Profile.name|notblank":      "El nombre no puede estar vacío.",
	"Profile.email|notblank":     "Por favor, introduce un email válido.",
	"Profile.email|email_simple": "Por favor, introduce un email válido.",
}

// fallback mirrors the generic per-tag wording
var fallback = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"oneof":    "The field '%s' must be one of %s.",
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Namespace()+"|"+fe.Tag()]; ok {
		return msg
	}
	if tmpl, ok := fallback[fe.Tag()]; ok {
		if fe.Param() != "" {
			return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
		}
		return fmt.Sprintf(tmpl, fe.Field())
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", fe.Field(), fe.Tag())
}
