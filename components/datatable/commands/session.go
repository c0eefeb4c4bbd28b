package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// LoginInput carries credentials; Result receives the issued session.
type LoginInput struct {
	Credentials datatable.Credentials `json:"credentials"`
	Result      *datatable.Session    `json:"-"`
}

type sessionService interface {
	Login(ctx context.Context, creds datatable.Credentials) (datatable.Session, error)
	Logout(ctx context.Context, token string) error
}

// LoginCommand issues a session for valid credentials.
type LoginCommand struct {
	sessions  sessionService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(sessions sessionService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{sessions: sessions, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute authenticates and stores the session in Result.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.sessions == nil {
		return errors.New("login command requires session manager")
	}
	session, err := c.sessions.Login(ctx, msg.Credentials)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = session
	}
	c.telemetry.Record(datatable.ContextWithSession(ctx, session), "datatable.command.login", nil)
	return nil
}

// LogoutInput identifies the session to end.
type LogoutInput struct {
	Token string `json:"token"`
}

// LogoutCommand ends a session and disposes its views.
type LogoutCommand struct {
	sessions sessionService
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(sessions sessionService) *LogoutCommand {
	return &LogoutCommand{sessions: sessions}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute revokes the token.
func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if c.sessions == nil {
		return errors.New("logout command requires session manager")
	}
	return c.sessions.Logout(ctx, msg.Token)
}
