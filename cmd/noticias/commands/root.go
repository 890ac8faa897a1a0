package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"os"
	"strings"

	"github.com/bilgisen/noticias/internal/auth"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/config"
	"github.com/bilgisen/noticias/internal/guard"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/spf13/cobra"
)

const protectedKey = "protected"

var (
	errNotSignedIn = errors.New("no hay una sesión activa; ejecuta `noticias login`")
	errAborted     = errors.New("cancelado")
)

// session is the state every command shares: configuration, the saved
// cookie jar and the backend services built on it.
type session struct {
	cfg    *config.Config
	jar    *cookiejar.Jar
	client *backend.Client
	auth   *auth.Service
	notify notice.Notifier

	in  *bufio.Reader
	out io.Writer

	closers []func() error
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	s := &session{}
	var backendURL string

	rootCmd := &cobra.Command{
		Use:           "noticias",
		Short:         "Sign in, manage your account and read the news from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd, backendURL); err != nil {
				return err
			}
			if isProtected(cmd) {
				return s.requireSession(cmd)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return s.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (default $BACKEND_URL)")

	rootCmd.AddCommand(
		newStatusCommand(s),
		newLoginCommand(s),
		newRegisterCommand(s),
		newLogoutCommand(s),
		newVerifyEmailCommand(s),
		newForgotPasswordCommand(s),
		newResetPasswordCommand(s),
		newOAuthCommand(s),
		newDashboardCommand(s),
		newProfileCommand(s),
		newAdminCommand(s),
		newNewsCommand(s),
	)

	return rootCmd
}

// protect marks cmd and everything under it as needing a signed-in session
func protect(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[protectedKey] = "true"
	return cmd
}

func isProtected(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[protectedKey] == "true" {
			return true
		}
	}
	return false
}

func (s *session) open(cmd *cobra.Command, backendURL string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.BackendURL = strings.TrimRight(backendURL, "/")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	output := cfg.LogFile
	if output == "" {
		output = "stderr"
	}
	if err := logger.Init(logger.Config{Level: level, Output: output, Pretty: true}); err != nil {
		return err
	}

	jar, err := backend.LoadJar(cfg.SessionFile, cfg.BackendURL)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.jar = jar
	s.client = backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.HTTPTimeout),
		backend.WithCookieJar(jar),
	)
	s.auth = auth.NewService(s.client)
	s.in = bufio.NewReader(cmd.InOrStdin())
	s.out = cmd.OutOrStdout()
	s.notify = notice.Multi{
		printer{w: s.out},
		notice.Log{Logger: logger.Component("notice")},
	}
	return nil
}

func (s *session) close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	if s.jar != nil {
		errs = append(errs, backend.SaveJar(s.jar, s.cfg.SessionFile, s.cfg.BackendURL))
	}
	return errors.Join(errs...)
}

// requireSession runs the route guard for a protected command.
func (s *session) requireSession(cmd *cobra.Command) error {
	d := guard.New(s.auth).Check(cmd.Context(), "/"+strings.ReplaceAll(cmd.CommandPath(), " ", "/"))
	if d.Allow {
		return nil
	}
	if d.Notice != "" {
		s.notify.Error(d.Notice)
	}
	return errNotSignedIn
}

func (s *session) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// prompt prints label and reads one trimmed line. EOF with no input aborts.
func (s *session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", errAborted
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// valueOrPrompt returns v, or asks for it when empty.
func (s *session) valueOrPrompt(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return s.prompt(label)
}

// confirm asks a yes/no question; only an explicit yes counts.
func (s *session) confirm(question string) (bool, error) {
	answer, err := s.prompt(question + " [s/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}

// printer shows notices on the terminal
type printer struct {
	w io.Writer
}

func (p printer) Success(msg string) { fmt.Fprintln(p.w, "✔ "+msg) }
func (p printer) Error(msg string)   { fmt.Fprintln(p.w, "✖ "+msg) }
