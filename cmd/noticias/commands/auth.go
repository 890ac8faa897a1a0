package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/noticias/internal/admin"
	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/flow"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
	"github.com/spf13/cobra"
)

func newStatusCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the saved session is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := s.auth.Status(s.ctx(cmd))
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(s.out, "Sesión iniciada")
			} else {
				fmt.Fprintln(s.out, "Sin sesión")
			}
			return nil
		},
	}
}

func newLoginCommand(s *session) *cobra.Command {
	var creds models.Credentials
	var method string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, completing the second factor when asked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if creds.Email, err = s.valueOrPrompt(creds.Email, "Email: "); err != nil {
				return err
			}
			if creds.Password, err = s.valueOrPrompt(creds.Password, "Contraseña: "); err != nil {
				return err
			}

			f := flow.New(flow.KindLogin, s.auth, s.notify)
			if err := f.SubmitLogin(s.ctx(cmd), creds); err != nil {
				return err
			}
			return s.secondFactor(s.ctx(cmd), f, method)
		},
	}

	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password")
	cmd.Flags().StringVarP(&method, "method", "m", "", "second factor method (computer or movil)")
	return cmd
}

func newRegisterCommand(s *session) *cobra.Command {
	var reg models.Registration
	var method string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and verify the email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if reg.Name, err = s.valueOrPrompt(reg.Name, "Nombre: "); err != nil {
				return err
			}
			if reg.Email, err = s.valueOrPrompt(reg.Email, "Email: "); err != nil {
				return err
			}
			if reg.Password, err = s.valueOrPrompt(reg.Password, "Contraseña: "); err != nil {
				return err
			}
			if reg.ConfirmPassword, err = s.valueOrPrompt(reg.ConfirmPassword, "Confirmar contraseña: "); err != nil {
				return err
			}

			f := flow.New(flow.KindRegister, s.auth, s.notify)
			if err := f.SubmitRegister(s.ctx(cmd), reg); err != nil {
				return err
			}
			return s.secondFactor(s.ctx(cmd), f, method)
		},
	}

	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&reg.ConfirmPassword, "confirm", "", "password confirmation")
	cmd.Flags().StringVarP(&method, "method", "m", "", "second factor method (computer or movil)")
	return cmd
}

// secondFactor drives the verification dialog until it closes. An empty
// code asks for a new one.
func (s *session) secondFactor(ctx context.Context, f *flow.Flow, method string) error {
	for f.OTPDialogOpen() {
		var err error
		switch f.State() {
		case flow.StateMFAPending:
			m := method
			method = ""
			if m, err = s.valueOrPrompt(m, "Método de verificación [computer/movil]: "); err != nil {
				return err
			}
			err = f.ChooseMethod(ctx, flow.Method(m))

		case flow.StateLinkSent:
			fmt.Fprintln(s.out, "Abre el enlace enviado a tu correo para completar la verificación.")
			return nil

		case flow.StateOTPSent, flow.StateOTPFailed:
			var code string
			if code, err = s.prompt("Código (vacío para reenviar): "); err != nil {
				return err
			}
			if code == "" {
				err = f.Resend(ctx)
				break
			}
			if err = f.SetCode(code); err == nil {
				err = f.Verify(ctx)
			}

		default:
			return fmt.Errorf("%w: %s", flow.ErrInvalidTransition, f.State())
		}

		if err != nil && !s.recoverable(err) {
			return err
		}
	}

	switch f.Destination() {
	case "/dashboard":
		fmt.Fprintln(s.out, "Sesión iniciada")
	case "/login":
		fmt.Fprintln(s.out, "Cuenta verificada. Ya puedes ejecutar `noticias login`.")
	default:
		if f.State() == flow.StateVerified {
			fmt.Fprintln(s.out, "Correo verificado. Vuelve a ejecutar `noticias login`.")
		}
	}
	return nil
}

// recoverable reports errors the dialog survives. Backend failures were
// already shown by the flow; local ones are shown here.
func (s *session) recoverable(err error) bool {
	if validation.IsValidation(err) || errors.Is(err, flow.ErrUnknownMethod) {
		s.notify.Error(err.Error())
		return true
	}
	e, ok := apierr.As(err)
	return ok && e.Kind != apierr.KindValidation
}

func newLogoutCommand(s *session) *cobra.Command {
	return protect(&cobra.Command{
		Use:   "logout",
		Short: "Close the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := s.auth.Logout(s.ctx(cmd))
			switch {
			case err == nil:
				s.notify.Success(orDefault(msg, "Sesión cerrada exitosamente."))
			case apierr.IsUnauthorized(err):
				s.notify.Error("No autorizado. Por favor, inicia sesión nuevamente.")
			default:
				s.notify.Error("Error en la solicitud de logout.")
				return err
			}
			return nil
		},
	})
}

func newVerifyEmailCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Complete an email verification with the token from the link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := s.auth.CompleteEmailVerification(s.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			s.notify.Success(orDefault(msg, "¡Correo electrónico verificado exitosamente! Ahora puedes iniciar sesión."))
			return nil
		},
	}
}

func newForgotPasswordCommand(s *session) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = s.valueOrPrompt(email, "Email: "); err != nil {
				return err
			}
			if _, err := s.auth.RequestPasswordReset(s.ctx(cmd), email); err != nil {
				return err
			}
			s.notify.Success("Reset successfully check yor email to change your password")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCommand(s *session) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from the reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if password, err = s.valueOrPrompt(password, "Nueva contraseña: "); err != nil {
				return err
			}
			if _, err := s.auth.ResetPassword(s.ctx(cmd), args[0], password); err != nil {
				return err
			}
			s.notify.Success("Password change successfully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "new password")
	return cmd
}

func newOAuthCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:       "oauth <provider>",
		Short:     "Print the URL that starts a sign-in with an external provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"google", "github"},
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.auth.OAuthURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, u)
			return nil
		},
	}
}

func newDashboardCommand(s *session) *cobra.Command {
	return protect(&cobra.Command{
		Use:   "dashboard",
		Short: "List the sections available to the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console := admin.NewConsole(s.client, s.auth)
			if _, err := console.Refresh(s.ctx(cmd)); err != nil {
				if errors.Is(err, admin.ErrSessionLost) {
					return err
				}
				s.notify.Error("No se pudo verificar el estado de administrador.")
			}
			for _, card := range console.Cards() {
				fmt.Fprintf(s.out, "%-15s %-14s %s\n", card.Title, card.Path, card.Description)
			}
			return nil
		},
	})
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
