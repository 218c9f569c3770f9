// Package shell is a line-oriented terminal front end.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ghaggin/coursedesk/internal/app"
	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const usage = `commands:
  login <username> <password>
  register <username> <email> <password> [student|instructor]
  mode                          switch between login and register
  logout
  courses                       refresh the course list
  select <course id>
  back                          deselect the course
  create-course <title> | <description>
  add-module <title> | <description> | <content>
  show                          print the current screen
  help
  q                             exit`

var errQuit = errors.New("quit")

type Shell struct {
	desk *app.Desk
	log  *zap.Logger
	in   io.Reader
	out  io.Writer
}

type Params struct {
	fx.In

	Desk *app.Desk
	Log  *zap.Logger
}

func New(p Params) *Shell {
	return NewWithIO(p.Desk, p.Log, os.Stdin, os.Stdout)
}

func NewWithIO(desk *app.Desk, log *zap.Logger, in io.Reader, out io.Writer) *Shell {
	return &Shell{desk: desk, log: log, in: in, out: out}
}

func RegisterHooks(lc fx.Lifecycle, sd fx.Shutdowner, s *Shell) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.Run(context.Background()); err != nil {
					s.log.Error("shell", zap.Error(err))
				}
				if err := sd.Shutdown(); err != nil {
					s.log.Error("shutdown", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// Run reads commands until q, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "type help for commands, q + <Enter> to exit...")
	s.show()

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		err := s.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "exiting")
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Shell) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "":
		return nil
	case "q", "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(s.out, usage)
		return nil
	case "show":
	case "mode":
		if err := s.desk.Auth.ToggleMode(); err != nil {
			return err
		}
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <username> <password>")
		}
		if err := s.submit(ctx, auth.ModeLogin, model.Credentials{Username: args[0], Password: args[1]}); err != nil {
			return err
		}
	case "register":
		if len(args) < 3 || len(args) > 4 {
			return fmt.Errorf("usage: register <username> <email> <password> [student|instructor]")
		}
		creds := model.Credentials{Username: args[0], Email: args[1], Password: args[2]}
		if len(args) == 4 {
			role, err := model.ParseRole(args[3])
			if err != nil {
				return err
			}
			creds.Role = role
		}
		if err := s.submit(ctx, auth.ModeRegister, creds); err != nil {
			return err
		}
	case "logout":
		if err := s.desk.Auth.Logout(ctx); err != nil {
			return err
		}
	case "courses":
		// shown on the error screen
		_ = s.desk.Catalog.Refresh(ctx)
	case "select":
		id, err := courseID(args)
		if err != nil {
			return err
		}
		if err := s.desk.Catalog.Select(ctx, id); err != nil && !errors.Is(err, model.ErrFetchFailure) {
			return err
		}
	case "back":
		s.desk.Catalog.Deselect()
	case "create-course":
		f := fields(rest, 2)
		// failures land in the catalog notice
		_ = s.desk.Catalog.CreateCourse(ctx, model.CourseDraft{Title: f[0], Description: f[1]})
	case "add-module":
		f := fields(rest, 3)
		_ = s.desk.Modules.AddModule(ctx, model.ModuleDraft{Title: f[0], Description: f[1], Content: f[2]})
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}

	s.show()
	return nil
}

// submit runs the exchange in the requested mode. Failures show on the login
// screen.
func (s *Shell) submit(ctx context.Context, mode auth.Mode, creds model.Credentials) error {
	if err := s.desk.Auth.SetMode(mode); err != nil {
		return err
	}
	if err := s.desk.Auth.Submit(ctx, creds); err != nil {
		if errors.Is(err, model.ErrAuthFailure) {
			return nil
		}
		return err
	}
	return nil
}

func courseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: select <course id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("course id %q: %w", args[0], err)
	}
	return id, nil
}

// fields splits s on | into exactly n trimmed parts.
func fields(s string, n int) []string {
	parts := strings.SplitN(s, "|", n)
	out := make([]string, n)
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
