// Package flow drives the login and registration handshakes, including the
// second-factor step, as an explicit state machine.
//
//	idle → submitting → authenticated | mfa_pending | failed
//	mfa_pending → choosing_method → otp_sent | link_sent | mfa_pending
//	otp_sent | otp_failed → verifying → verified | otp_failed
//
// A Flow never holds the password, and holds the OTP code only between
// SetCode and the end of Verify.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/bilgisen/noticias/internal/validation"
)

// Kind of handshake
type Kind string

const (
	KindLogin    Kind = "login"
	KindRegister Kind = "register"
)

// State of a flow
type State string

const (
	StateIdle           State = "idle"
	StateSubmitting     State = "submitting"
	StateAuthenticated  State = "authenticated"
	StateMFAPending     State = "mfa_pending"
	StateFailed         State = "failed"
	StateChoosingMethod State = "choosing_method"
	StateOTPSent        State = "otp_sent"
	StateLinkSent       State = "link_sent"
	StateVerifying      State = "verifying"
	StateVerified       State = "verified"
	StateOTPFailed      State = "otp_failed"
)

// Method is the second-factor channel. The values are the ones the UI
// has always used.
type Method string

const (
	// MethodComputer mails a 6-digit code entered in the app
	MethodComputer Method = "computer"
	// MethodMovil mails a link completed outside the app
	MethodMovil Method = "movil"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// current state. Nothing is sent and nothing changes.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrUnknownMethod is returned by ChooseMethod for unknown channels.
	ErrUnknownMethod = errors.New("unknown verification method")
)

// Authenticator is the subset of auth.Service a flow needs.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) error
	Register(ctx context.Context, reg models.Registration) (string, error)
	SendOTP(ctx context.Context, email string) (string, error)
	RequestEmailVerification(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	ResendOTP(ctx context.Context, email string) (string, error)
}

// Flow is one handshake. Safe for concurrent use; an action started while
// another is in flight fails with ErrInvalidTransition.
type Flow struct {
	auth   Authenticator
	notify notice.Notifier

	mu      sync.Mutex
	kind    Kind
	state   State
	email   string
	method  Method
	code    string
	message string
}

// New creates an idle flow. A nil notifier discards notices.
func New(kind Kind, auth Authenticator, notify notice.Notifier) *Flow {
	if notify == nil {
		notify = notice.Discard{}
	}
	return &Flow{auth: auth, notify: notify, kind: kind, state: StateIdle}
}

// Kind returns the handshake kind
func (f *Flow) Kind() Kind { return f.kind }

// State returns the current state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Email returns the email kept for the second factor
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Method returns the last chosen channel
func (f *Flow) Method() Method {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method
}

// Message returns the last message shown to the user
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Code returns the OTP code being entered
func (f *Flow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// OTPDialogOpen reports whether the second-factor dialog is showing.
func (f *Flow) OTPDialogOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateMFAPending, StateChoosingMethod, StateOTPSent, StateLinkSent, StateVerifying, StateOTPFailed:
		return true
	}
	return false
}

// Destination is where the user goes next, or "" to stay.
func (f *Flow) Destination() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.state == StateAuthenticated:
		return "/dashboard"
	case f.state == StateVerified && f.kind == KindRegister:
		return "/login"
	}
	return ""
}

// begin moves to a transient state when the current one is allowed.
func (f *Flow) begin(next State, allowed ...State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range allowed {
		if f.state == s {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, next, f.state)
}

func (f *Flow) finish(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *Flow) check(want Kind, allowed ...State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kind != want {
		return fmt.Errorf("%w: %s flow", ErrInvalidTransition, f.kind)
	}
	for _, s := range allowed {
		if f.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.state)
}

var submittable = []State{StateIdle, StateFailed, StateMFAPending, StateOTPFailed, StateVerified}

// SubmitLogin posts the credentials of a login flow.
func (f *Flow) SubmitLogin(ctx context.Context, creds models.Credentials) error {
	if err := f.check(KindLogin, submittable...); err != nil {
		return err
	}
	if err := validation.Struct(creds); err != nil {
		return err
	}
	if err := f.begin(StateSubmitting, submittable...); err != nil {
		return err
	}

	err := f.auth.Login(ctx, creds)

	var msg string
	f.finish(func() {
		f.method, f.code = "", ""
		switch {
		case err == nil:
			f.state, f.email = StateAuthenticated, ""
			f.message = "Inicio de sesión exitoso"
		case apierr.RequiresVerification(err):
			f.state, f.email = StateMFAPending, creds.Email
			f.message = messageOf(err, "Error desconocido en el inicio de sesión.")
		default:
			f.state, f.email = StateFailed, ""
			f.message = messageOf(err, "Error desconocido en el inicio de sesión.")
		}
		msg = f.message
	})

	switch {
	case err == nil:
		f.notify.Success(msg)
	case apierr.KindOf(err) == apierr.KindTransport:
		f.notify.Error("Error en la petición")
	default:
		f.notify.Error("Error: " + msg)
	}
	if apierr.RequiresVerification(err) {
		return nil
	}
	return err
}

// SubmitRegister posts a registration. Success leads to the second factor.
func (f *Flow) SubmitRegister(ctx context.Context, reg models.Registration) error {
	if err := f.check(KindRegister, submittable...); err != nil {
		return err
	}
	if err := validation.Struct(reg); err != nil {
		return err
	}
	if err := f.begin(StateSubmitting, submittable...); err != nil {
		return err
	}

	backendMsg, err := f.auth.Register(ctx, reg)

	var msg string
	f.finish(func() {
		f.method, f.code = "", ""
		if err == nil {
			f.state, f.email = StateMFAPending, reg.Email
			f.message = orDefault(backendMsg, "Registro exitoso. Por favor verifica tu correo.")
		} else {
			f.state, f.email = StateFailed, ""
			f.message = messageOf(err, "Error en el registro.")
		}
		msg = f.message
	})

	switch {
	case err == nil:
		f.notify.Success(msg)
	case apierr.KindOf(err) == apierr.KindTransport:
		f.notify.Error("Error en la petición de registro.")
	default:
		f.notify.Error(msg)
	}
	return err
}

// ChooseMethod requests the second factor on the given channel. It may be
// called again to switch or repeat; earlier requests are not cancelled.
func (f *Flow) ChooseMethod(ctx context.Context, method Method) error {
	if method != MethodComputer && method != MethodMovil {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err := f.begin(StateChoosingMethod, StateMFAPending, StateOTPSent, StateLinkSent, StateOTPFailed); err != nil {
		return err
	}

	email := f.Email()
	var (
		backendMsg string
		err        error
	)
	if method == MethodComputer {
		backendMsg, err = f.auth.SendOTP(ctx, email)
	} else {
		backendMsg, err = f.auth.RequestEmailVerification(ctx, email)
	}

	var msg string
	f.finish(func() {
		f.code = ""
		switch {
		case err != nil:
			f.state = StateMFAPending
			f.message = failureFor(method, err)
		case method == MethodComputer:
			f.state, f.method = StateOTPSent, method
			f.message = orDefault(backendMsg, "Se ha enviado un OTP a tu correo. Ingrésalo a continuación.")
		default:
			f.state, f.method = StateLinkSent, method
			f.message = orDefault(backendMsg, "Correo de verificación enviado. Revisa tu bandeja de entrada.")
		}
		msg = f.message
	})

	if err != nil {
		f.notify.Error(msg)
		return err
	}
	f.notify.Success(msg)
	return nil
}

func failureFor(method Method, err error) string {
	transport := apierr.KindOf(err) == apierr.KindTransport
	switch {
	case method == MethodComputer && transport:
		return "Error de red al solicitar el OTP."
	case method == MethodComputer:
		return messageOf(err, "Error al solicitar el OTP por correo.")
	case transport:
		return "Error de red al solicitar verificación por correo."
	default:
		return messageOf(err, "Error al solicitar la verificación por correo.")
	}
}

// SetCode records the code being typed.
func (f *Flow) SetCode(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateOTPSent && f.state != StateOTPFailed {
		return fmt.Errorf("%w: code entry from %s", ErrInvalidTransition, f.state)
	}
	f.code = strings.TrimSpace(code)
	return nil
}

// Verify submits the recorded code. The code is cleared whatever the
// outcome; a failure leaves the dialog open for another attempt.
func (f *Flow) Verify(ctx context.Context) error {
	f.mu.Lock()
	email, code, state := f.email, f.code, f.state
	f.mu.Unlock()

	if state != StateOTPSent && state != StateOTPFailed {
		return fmt.Errorf("%w: verify from %s", ErrInvalidTransition, state)
	}
	if err := validation.Struct(models.OTPVerification{Email: email, OTP: code}); err != nil {
		f.mu.Lock()
		f.code = ""
		f.mu.Unlock()
		return err
	}
	if err := f.begin(StateVerifying, StateOTPSent, StateOTPFailed); err != nil {
		return err
	}

	_, err := f.auth.VerifyOTP(ctx, email, code)

	f.finish(func() {
		f.code = ""
		if err == nil {
			f.state = StateVerified
			f.message = "Success verification"
		} else {
			f.state = StateOTPFailed
			f.message = "Error in verification"
		}
	})

	if err != nil {
		f.notify.Error("Error in verification")
		return err
	}
	f.notify.Success("Success verification")
	return nil
}

// Resend asks for a fresh code. The state does not change.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	email, state := f.email, f.state
	f.mu.Unlock()

	switch state {
	case StateMFAPending, StateOTPSent, StateOTPFailed:
	default:
		return fmt.Errorf("%w: resend from %s", ErrInvalidTransition, state)
	}

	if _, err := f.auth.ResendOTP(ctx, email); err != nil {
		f.notify.Error("Error en reenvio, trate otra vez")
		return err
	}
	f.notify.Success("Reenvio de OTP exitoso, verifique su correo")
	return nil
}

// Reset returns the flow to idle and forgets everything.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.email, f.method, f.code, f.message = "", "", "", ""
}

func messageOf(err error, fallback string) string {
	if e, ok := apierr.As(err); ok {
		if e.Kind == apierr.KindTransport {
			return "Error en la petición de red."
		}
		return e.UserMessage(fallback)
	}
	if err != nil && validation.IsValidation(err) {
		return err.Error()
	}
	return fallback
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
