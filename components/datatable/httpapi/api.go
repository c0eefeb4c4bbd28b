package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/components/datatable/commands"
	"github.com/goliatone/go-datatable/components/datatable/queries"
)

// Response is a transport-neutral reply: a JSON body, or raw bytes when Raw
// is set.
type Response struct {
	Status  int
	Body    any
	Raw     []byte
	Headers map[string]string
}

// Executor exposes table operations backed by shared commands and queries.
type Executor struct {
	Tables  gocommand.Querier[datatable.ViewerContext, []datatable.TableDefinition]
	Table   gocommand.Querier[queries.TableInput, datatable.TableRender]
	Summary gocommand.Querier[queries.SummaryInput, datatable.Summary]
	Search  gocommand.Commander[commands.SearchTableInput]
	Sort    gocommand.Commander[commands.SortTableInput]
	Page    gocommand.Commander[commands.PageTableInput]
	Export  gocommand.Commander[commands.ExportTableInput]
	Login   gocommand.Commander[commands.LoginInput]
	Logout  gocommand.Commander[commands.LogoutInput]
}

// NewExecutor wires the default commands and queries around a service and
// session manager.
func NewExecutor(service *datatable.Service, sessions *datatable.SessionManager, telemetry commands.Telemetry) *Executor {
	return &Executor{
		Tables:  queries.NewTablesQuery(service),
		Table:   queries.NewTableQuery(service),
		Summary: queries.NewSummaryQuery(service),
		Search:  commands.NewSearchTableCommand(service, telemetry),
		Sort:    commands.NewSortTableCommand(service, telemetry),
		Page:    commands.NewPageTableCommand(service),
		Export:  commands.NewExportTableCommand(service, telemetry),
		Login:   commands.NewLoginCommand(sessions, telemetry),
		Logout:  commands.NewLogoutCommand(sessions),
	}
}

type searchRequest struct {
	Term string `json:"term"`
}

type sortRequest struct {
	Key string `json:"key"`
}

type pageRequest struct {
	Page int    `json:"page"`
	Move string `json:"move"`
}

// TableEntry is one row of the table directory.
type TableEntry struct {
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns"`
}

// ListTables returns the registered tables with titles in the viewer's locale.
func (e *Executor) ListTables(ctx context.Context, viewer datatable.ViewerContext) Response {
	defs, err := e.Tables.Query(ctx, viewer)
	if err != nil {
		return ErrorResponse(err)
	}
	entries := make([]TableEntry, 0, len(defs))
	for _, def := range defs {
		columns := make([]string, len(def.Columns))
		for i, column := range def.Columns {
			columns[i] = column.Key
		}
		entries = append(entries, TableEntry{
			Code:        def.Code,
			Title:       def.TitleForLocale(viewer.Locale),
			Description: def.Description,
			Columns:     columns,
		})
	}
	return Response{Status: http.StatusOK, Body: map[string]any{"tables": entries}}
}

// TableState returns the viewer's table render.
func (e *Executor) TableState(ctx context.Context, viewer datatable.ViewerContext, table string) Response {
	render, err := e.Table.Query(ctx, queries.TableInput{Viewer: viewer, Table: table})
	if err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: render}
}

// SearchTable applies a search term from a JSON body.
func (e *Executor) SearchTable(ctx context.Context, viewer datatable.ViewerContext, table string, body []byte) Response {
	var payload searchRequest
	if err := decodeBody(body, &payload); err != nil {
		return ErrorResponse(err)
	}
	var render datatable.TableRender
	if err := e.Search.Execute(ctx, commands.SearchTableInput{Viewer: viewer, Table: table, Term: payload.Term, Result: &render}); err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: render}
}

// SortTable toggles the sort on the key from a JSON body.
func (e *Executor) SortTable(ctx context.Context, viewer datatable.ViewerContext, table string, body []byte) Response {
	var payload sortRequest
	if err := decodeBody(body, &payload); err != nil {
		return ErrorResponse(err)
	}
	if payload.Key == "" {
		return ErrorResponse(fmt.Errorf("%w: key is required", datatable.ErrInvalidRequest))
	}
	var render datatable.TableRender
	if err := e.Sort.Execute(ctx, commands.SortTableInput{Viewer: viewer, Table: table, Key: payload.Key, Result: &render}); err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: render}
}

// PageTable navigates using a JSON body with page or move.
func (e *Executor) PageTable(ctx context.Context, viewer datatable.ViewerContext, table string, body []byte) Response {
	var payload pageRequest
	if err := decodeBody(body, &payload); err != nil {
		return ErrorResponse(err)
	}
	var render datatable.TableRender
	if err := e.Page.Execute(ctx, commands.PageTableInput{Viewer: viewer, Table: table, Page: payload.Page, Move: payload.Move, Result: &render}); err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: render}
}

// ExportTable returns the file as an attachment.
func (e *Executor) ExportTable(ctx context.Context, viewer datatable.ViewerContext, table, format string) Response {
	var result datatable.ExportResult
	if err := e.Export.Execute(ctx, commands.ExportTableInput{Viewer: viewer, Table: table, Format: format, Result: &result}); err != nil {
		return ErrorResponse(err)
	}
	return Response{
		Status: http.StatusOK,
		Raw:    result.Data,
		Headers: map[string]string{
			"Content-Type":        result.ContentType,
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", result.Filename),
		},
	}
}

// TableSummary groups records by key and optionally charts them.
func (e *Executor) TableSummary(ctx context.Context, viewer datatable.ViewerContext, table, key, chart string) Response {
	summary, err := e.Summary.Query(ctx, queries.SummaryInput{Viewer: viewer, Table: table, Key: key, Chart: chart})
	if err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: summary}
}

// SignIn authenticates credentials from a JSON body. The session is returned
// so the transport can set the cookie.
func (e *Executor) SignIn(ctx context.Context, body []byte) (Response, *datatable.Session) {
	var creds datatable.Credentials
	if err := decodeBody(body, &creds); err != nil {
		return ErrorResponse(err), nil
	}
	var session datatable.Session
	if err := e.Login.Execute(ctx, commands.LoginInput{Credentials: creds, Result: &session}); err != nil {
		return ErrorResponse(err), nil
	}
	return Response{Status: http.StatusOK, Body: map[string]any{
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	}}, &session
}

// SignOut revokes the token.
func (e *Executor) SignOut(ctx context.Context, token string) Response {
	if err := e.Logout.Execute(ctx, commands.LogoutInput{Token: token}); err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: map[string]string{"status": "signed_out"}}
}

// ErrorResponse maps domain errors onto HTTP statuses. Export failures become
// a non-fatal notification.
func ErrorResponse(err error) Response {
	var exportErr *datatable.ExportError
	if errors.As(err, &exportErr) {
		return Response{Status: http.StatusUnprocessableEntity, Body: map[string]string{"notification": exportErr.Notification()}}
	}
	return Response{Status: StatusFor(err), Body: map[string]string{"error": err.Error()}}
}

// StatusFor returns the HTTP status for an error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, datatable.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, datatable.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, datatable.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, datatable.ErrInvalidRequest), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, datatable.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var errBadBody = errors.New("datatable: invalid request body")

func decodeBody(body []byte, target any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
