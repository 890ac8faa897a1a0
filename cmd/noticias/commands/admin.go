package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/bilgisen/noticias/internal/admin"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/spf13/cobra"
)

func newAdminCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Args:  cobra.NoArgs,
		Short: "Administration commands",
	}

	users := &cobra.Command{
		Use:     "users",
		Aliases: []string{"u"},
		Args:    cobra.NoArgs,
		Short:   "Manage user accounts",
	}
	users.AddCommand(
		newUsersListCommand(s),
		newUsersShowCommand(s),
		newUsersUpdateCommand(s),
		newUsersDeleteCommand(s),
	)
	cmd.AddCommand(users)

	return protect(cmd)
}

// console returns a console that has confirmed the admin role.
func (s *session) console(cmd *cobra.Command) (*admin.Console, error) {
	console := admin.NewConsole(s.client, s.auth)
	if _, err := console.Refresh(s.ctx(cmd)); err != nil {
		return nil, err
	}
	if !console.IsAdmin() {
		s.notify.Error("No tienes permisos para acceder a esta sección.")
		return nil, admin.ErrNotAdmin
	}
	return console, nil
}

func (s *session) printUsers(users ...models.User) {
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tEMAIL\tROL")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	w.Flush()
}

func newUsersListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := s.console(cmd)
			if err != nil {
				return err
			}
			users, err := console.ListUsers(s.ctx(cmd))
			if err != nil {
				s.notify.Error("No se pudieron cargar los usuarios.")
				return err
			}
			s.printUsers(users...)
			return nil
		},
	}
}

func newUsersShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := s.console(cmd)
			if err != nil {
				return err
			}
			user, err := console.GetUser(s.ctx(cmd), models.UserID(args[0]))
			if err != nil {
				s.notify.Error("No se pudieron cargar los detalles del usuario.")
				return err
			}
			s.printUsers(*user)
			return nil
		},
	}
}

func newUsersUpdateCommand(s *session) *cobra.Command {
	var name, email, role string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a user's name, email or role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := s.console(cmd)
			if err != nil {
				return err
			}
			id := models.UserID(args[0])
			current, err := console.GetUser(s.ctx(cmd), id)
			if err != nil {
				return err
			}

			upd := models.UserUpdate{Name: current.Name, Email: current.Email, Role: current.Role}
			if cmd.Flags().Changed("name") {
				upd.Name = name
			}
			if cmd.Flags().Changed("email") {
				upd.Email = email
			}
			if cmd.Flags().Changed("role") {
				upd.Role = models.Role(role)
			}

			user, err := console.UpdateUser(s.ctx(cmd), id, upd)
			if err != nil {
				return err
			}
			s.notify.Success("Usuario actualizado correctamente")
			s.printUsers(*user)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "new email")
	cmd.Flags().StringVarP(&role, "role", "r", "", "new role (user or admin)")
	return cmd
}

func newUsersDeleteCommand(s *session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := s.console(cmd)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := s.confirm(fmt.Sprintf("¿Eliminar el usuario %s?", args[0]))
				if err != nil || !ok {
					return errAborted
				}
			}
			if err := console.DeleteUser(s.ctx(cmd), models.UserID(args[0])); err != nil {
				s.notify.Error("No se pudo eliminar el usuario.")
				return err
			}
			s.notify.Success(fmt.Sprintf("Usuario %s eliminado correctamente.", args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
