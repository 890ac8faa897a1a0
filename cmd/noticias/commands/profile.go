package commands

import (
	"fmt"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/profile"
	"github.com/spf13/cobra"
)

func newProfileCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Args:  cobra.NoArgs,
		Short: "Show and edit your own account",
	}

	cmd.AddCommand(
		newProfileShowCommand(s),
		newProfileUpdateCommand(s),
		newProfileDeleteCommand(s),
		newProfilePasswordCommand(s),
	)

	return protect(cmd)
}

func newProfileShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print name and email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.NewService(s.client).Get(s.ctx(cmd))
			if err != nil {
				s.notify.Error(profile.MsgLoadFailed)
				return err
			}
			fmt.Fprintf(s.out, "Nombre: %s\nEmail:  %s\n", p.Name, p.Email)
			return nil
		},
	}
}

func newProfileUpdateCommand(s *session) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name and/or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := profile.NewService(s.client)
			current, err := svc.Get(s.ctx(cmd))
			if err != nil {
				s.notify.Error(profile.MsgLoadFailed)
				return err
			}

			upd := *current
			if cmd.Flags().Changed("name") {
				upd.Name = name
			}
			if cmd.Flags().Changed("email") {
				upd.Email = email
			}
			if err := svc.Update(s.ctx(cmd), upd); err != nil {
				s.notify.Error(profile.FailureMessage(err, profile.MsgUpdateFailed))
				return err
			}
			s.notify.Success(profile.MsgUpdated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "new email")
	return cmd
}

func newProfileDeleteCommand(s *session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := s.confirm("¿Seguro que quieres eliminar tu perfil?")
				if err != nil || !ok {
					return errAborted
				}
			}
			if err := profile.NewService(s.client).Delete(s.ctx(cmd)); err != nil {
				s.notify.Error(profile.FailureMessage(err, profile.MsgDeleteFailed))
				return err
			}
			s.notify.Success(profile.MsgDeleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newProfilePasswordCommand(s *session) *cobra.Command {
	var change models.PasswordChange

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if change.OldPassword, err = s.valueOrPrompt(change.OldPassword, "Contraseña actual: "); err != nil {
				return err
			}
			if change.NewPassword, err = s.valueOrPrompt(change.NewPassword, "Nueva contraseña: "); err != nil {
				return err
			}

			if err := profile.NewService(s.client).ChangePassword(s.ctx(cmd), change); err != nil {
				fallback := profile.MsgPasswordFailed
				if apierr.KindOf(err) == apierr.KindTransport {
					fallback = profile.MsgPasswordNetwork
				}
				s.notify.Error(profile.FailureMessage(err, fallback))
				return err
			}
			s.notify.Success(profile.MsgPasswordChanged)
			return nil
		},
	}

	cmd.Flags().StringVar(&change.OldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&change.NewPassword, "new", "", "new password")
	return cmd
}
