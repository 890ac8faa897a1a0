package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/bilgisen/noticias/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth records calls and answers with the configured errors.
type fakeAuth struct {
	calls []string

	loginErr, registerErr, sendErr, linkErr, verifyErr, resendErr error
	lastCode                                                      string
}

func (a *fakeAuth) Login(ctx context.Context, creds models.Credentials) error {
	a.calls = append(a.calls, "login")
	return a.loginErr
}

func (a *fakeAuth) Register(ctx context.Context, reg models.Registration) (string, error) {
	a.calls = append(a.calls, "register")
	return "", a.registerErr
}

func (a *fakeAuth) SendOTP(ctx context.Context, email string) (string, error) {
	a.calls = append(a.calls, "send-otp:"+email)
	return "", a.sendErr
}

func (a *fakeAuth) RequestEmailVerification(ctx context.Context, email string) (string, error) {
	a.calls = append(a.calls, "request-link:"+email)
	return "", a.linkErr
}

func (a *fakeAuth) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	a.calls = append(a.calls, "verify-otp:"+email)
	a.lastCode = code
	return "", a.verifyErr
}

func (a *fakeAuth) ResendOTP(ctx context.Context, email string) (string, error) {
	a.calls = append(a.calls, "resend-otp:"+email)
	return "", a.resendErr
}

var (
	goodCreds = models.Credentials{Email: "ana@example.com", Password: "secret1"}
	goodReg   = models.Registration{Name: "Ana", Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	needsVerification = &apierr.Error{Kind: apierr.KindRejected, Status: http.StatusForbidden, Message: "Debes verificar tu correo"}
	badCredentials    = &apierr.Error{Kind: apierr.KindRejected, Status: http.StatusBadRequest, Message: "Credenciales inválidas"}
)

func mfaPendingLogin(t *testing.T, auth *fakeAuth, n notice.Notifier) *Flow {
	t.Helper()
	auth.loginErr = needsVerification
	f := New(KindLogin, auth, n)
	require.NoError(t, f.SubmitLogin(context.Background(), goodCreds))
	require.Equal(t, StateMFAPending, f.State())
	auth.loginErr = nil
	return f
}

func TestLoginSuccess(t *testing.T) {
	auth := &fakeAuth{}
	var notices notice.Collector
	f := New(KindLogin, auth, &notices)

	require.NoError(t, f.SubmitLogin(context.Background(), goodCreds))
	assert.Equal(t, StateAuthenticated, f.State())
	assert.Equal(t, "/dashboard", f.Destination())
	assert.False(t, f.OTPDialogOpen())
	assert.Equal(t, []notice.Notice{{Level: notice.LevelSuccess, Message: "Inicio de sesión exitoso"}}, notices.Drain())
}

func TestLoginVerificationRequired(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)

	assert.Equal(t, "ana@example.com", f.Email())
	assert.True(t, f.OTPDialogOpen())
	assert.Equal(t, "", f.Destination())
}

func TestLoginRejected(t *testing.T) {
	auth := &fakeAuth{loginErr: badCredentials}
	var notices notice.Collector
	f := New(KindLogin, auth, &notices)

	err := f.SubmitLogin(context.Background(), goodCreds)
	assert.ErrorIs(t, err, badCredentials)
	assert.Equal(t, StateFailed, f.State())
	assert.Empty(t, f.Email())
	assert.Equal(t, "Credenciales inválidas", f.Message())
	assert.Equal(t, "Error: Credenciales inválidas", notices.Drain()[0].Message)
}

func TestLoginInvalidInputSendsNothing(t *testing.T) {
	auth := &fakeAuth{}
	f := New(KindLogin, auth, nil)

	err := f.SubmitLogin(context.Background(), models.Credentials{Email: "ana@example.com", Password: "123"})
	assert.True(t, validation.IsValidation(err))
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, auth.calls)
}

func TestRegisterLeadsToSecondFactor(t *testing.T) {
	auth := &fakeAuth{}
	f := New(KindRegister, auth, nil)

	require.NoError(t, f.SubmitRegister(context.Background(), goodReg))
	assert.Equal(t, StateMFAPending, f.State())
	assert.Equal(t, "ana@example.com", f.Email())
	assert.True(t, f.OTPDialogOpen())
}

func TestRegisterMismatchSendsNothing(t *testing.T) {
	auth := &fakeAuth{}
	f := New(KindRegister, auth, nil)

	reg := goodReg
	reg.ConfirmPassword = "other12"
	err := f.SubmitRegister(context.Background(), reg)
	assert.True(t, validation.IsValidation(err))
	assert.Empty(t, auth.calls)
}

func TestWrongKindIsRejected(t *testing.T) {
	f := New(KindLogin, &fakeAuth{}, nil)
	assert.ErrorIs(t, f.SubmitRegister(context.Background(), goodReg), ErrInvalidTransition)
}

func TestChooseComputerThenVerify(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)
	ctx := context.Background()

	require.NoError(t, f.ChooseMethod(ctx, MethodComputer))
	assert.Equal(t, StateOTPSent, f.State())
	assert.Equal(t, MethodComputer, f.Method())

	require.NoError(t, f.SetCode("123456"))
	require.NoError(t, f.Verify(ctx))
	assert.Equal(t, StateVerified, f.State())
	assert.Empty(t, f.Code())
	assert.Equal(t, "123456", auth.lastCode)
	assert.False(t, f.OTPDialogOpen())
	assert.Equal(t, "", f.Destination())
}

func TestRegisterVerifiedGoesToLogin(t *testing.T) {
	auth := &fakeAuth{}
	f := New(KindRegister, auth, nil)
	ctx := context.Background()

	require.NoError(t, f.SubmitRegister(ctx, goodReg))
	require.NoError(t, f.ChooseMethod(ctx, MethodComputer))
	require.NoError(t, f.SetCode("654321"))
	require.NoError(t, f.Verify(ctx))
	assert.Equal(t, "/login", f.Destination())
}

func TestChooseMovilSendsLink(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)

	require.NoError(t, f.ChooseMethod(context.Background(), MethodMovil))
	assert.Equal(t, StateLinkSent, f.State())
	assert.Contains(t, auth.calls, "request-link:ana@example.com")

	// switching channel is allowed
	require.NoError(t, f.ChooseMethod(context.Background(), MethodComputer))
	assert.Equal(t, StateOTPSent, f.State())
}

func TestChooseMethodFailureReturnsToPending(t *testing.T) {
	auth := &fakeAuth{}
	var notices notice.Collector
	f := mfaPendingLogin(t, auth, &notices)
	notices.Drain()
	auth.sendErr = apierr.Transport(errors.New("dial tcp: refused"))

	require.Error(t, f.ChooseMethod(context.Background(), MethodComputer))
	assert.Equal(t, StateMFAPending, f.State())
	assert.Equal(t, "Error de red al solicitar el OTP.", notices.Drain()[0].Message)
}

func TestChooseUnknownMethod(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)
	assert.ErrorIs(t, f.ChooseMethod(context.Background(), "sms"), ErrUnknownMethod)
	assert.Equal(t, StateMFAPending, f.State())
}

func TestVerifyFailureClearsCodeAndStaysOpen(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)
	ctx := context.Background()
	require.NoError(t, f.ChooseMethod(ctx, MethodComputer))

	auth.verifyErr = &apierr.Error{Kind: apierr.KindRejected, Status: 400, Message: "OTP inválido"}
	require.NoError(t, f.SetCode("000000"))
	require.Error(t, f.Verify(ctx))
	assert.Equal(t, StateOTPFailed, f.State())
	assert.Empty(t, f.Code())
	assert.True(t, f.OTPDialogOpen())

	// no client-side attempt limit
	for i := 0; i < 5; i++ {
		require.NoError(t, f.SetCode("000000"))
		require.Error(t, f.Verify(ctx))
	}
	auth.verifyErr = nil
	require.NoError(t, f.SetCode("111111"))
	require.NoError(t, f.Verify(ctx))
	assert.Equal(t, StateVerified, f.State())
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)
	require.NoError(t, f.ChooseMethod(context.Background(), MethodComputer))
	calls := len(auth.calls)

	require.NoError(t, f.SetCode("12ab56"))
	assert.True(t, validation.IsValidation(f.Verify(context.Background())))
	assert.Equal(t, StateOTPSent, f.State())
	assert.Empty(t, f.Code())
	assert.Len(t, auth.calls, calls)
}

func TestVerifyBeforeCodeSentIsInvalid(t *testing.T) {
	f := mfaPendingLogin(t, &fakeAuth{}, nil)
	assert.ErrorIs(t, f.SetCode("123456"), ErrInvalidTransition)
	assert.ErrorIs(t, f.Verify(context.Background()), ErrInvalidTransition)
}

func TestResendKeepsState(t *testing.T) {
	auth := &fakeAuth{}
	var notices notice.Collector
	f := mfaPendingLogin(t, auth, &notices)
	require.NoError(t, f.ChooseMethod(context.Background(), MethodComputer))
	notices.Drain()

	require.NoError(t, f.Resend(context.Background()))
	require.NoError(t, f.Resend(context.Background()))
	assert.Equal(t, StateOTPSent, f.State())
	assert.Contains(t, auth.calls, "resend-otp:ana@example.com")
	assert.Len(t, notices.Drain(), 2)
}

func TestResendFromIdleIsInvalid(t *testing.T) {
	f := New(KindLogin, &fakeAuth{}, nil)
	assert.ErrorIs(t, f.Resend(context.Background()), ErrInvalidTransition)
}

func TestSnapshotNeverHoldsSecrets(t *testing.T) {
	auth := &fakeAuth{}
	f := mfaPendingLogin(t, auth, nil)
	require.NoError(t, f.ChooseMethod(context.Background(), MethodComputer))
	require.NoError(t, f.SetCode("123456"))

	data, err := json.Marshal(f.Snapshot())
	require.NoError(t, err)
	assert.NotContains(t, string(data), goodCreds.Password)
	assert.NotContains(t, string(data), "123456")

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	restored, err := Restore(snap, auth, nil)
	require.NoError(t, err)
	assert.Equal(t, StateOTPSent, restored.State())
	assert.Equal(t, "ana@example.com", restored.Email())
	assert.Empty(t, restored.Code())
}

func TestRestoreRejectsTransientStates(t *testing.T) {
	_, err := Restore(Snapshot{Kind: KindLogin, State: StateVerifying}, &fakeAuth{}, nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = Restore(Snapshot{Kind: "oauth", State: StateIdle}, &fakeAuth{}, nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestReset(t *testing.T) {
	f := mfaPendingLogin(t, &fakeAuth{}, nil)
	f.Reset()
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, f.Email())
}
