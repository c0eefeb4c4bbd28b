package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	datatable "github.com/goliatone/go-datatable/components/datatable"
)

const maxBodyBytes = 1 << 20

// Handlers exposes the executor over net/http.
type Handlers struct {
	Executor   *Executor
	Controller *datatable.Controller
	Service    *datatable.Service
	Sessions   *datatable.SessionManager
	Guard      datatable.RouteGuard
	CookieName string
	BasePath   string
}

// Mux registers every route on a ServeMux mounted at BasePath.
func (h *Handlers) Mux() http.Handler {
	base := strings.TrimSuffix(h.BasePath, "/")
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+base+"/api/auth/login", h.login)
	mux.HandleFunc("POST "+base+"/api/auth/logout", h.logout)
	mux.HandleFunc("GET "+base+"/api/tables", h.tables)
	mux.HandleFunc("GET "+base+"/api/tables/{table}", h.table)
	mux.HandleFunc("POST "+base+"/api/tables/{table}/search", h.submit(h.Executor.SearchTable))
	mux.HandleFunc("POST "+base+"/api/tables/{table}/sort", h.submit(h.Executor.SortTable))
	mux.HandleFunc("POST "+base+"/api/tables/{table}/page", h.submit(h.Executor.PageTable))
	mux.HandleFunc("GET "+base+"/api/tables/{table}/export", h.export)
	mux.HandleFunc("GET "+base+"/api/tables/{table}/summary", h.summary)
	if h.Service != nil {
		mux.HandleFunc("GET "+base+"/api/tables/{table}/live", h.live)
	}
	if h.Controller != nil {
		mux.HandleFunc("GET "+base+"/tables/{table}", h.tablePage)
	}
	return h.Guarded(mux)
}

// Guarded resolves the session cookie and applies the route guard before
// delegating to next.
func (h *Handlers) Guarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authenticated := false
		if h.Sessions != nil {
			token := TokenFromHeaders(r.Header.Get("Cookie"), r.Header.Get("Authorization"), h.CookieName)
			if session, err := h.Sessions.Lookup(ctx, token); err == nil {
				ctx = datatable.ContextWithSession(ctx, session)
				authenticated = true
			}
		}
		decision := h.Guard.Decide(GuardPath(h.BasePath, r.URL.Path), authenticated)
		switch decision.Action {
		case datatable.GuardRedirect:
			http.Redirect(w, r, h.BasePath+decision.Location, http.StatusFound)
			return
		case datatable.GuardUnauthorized:
			writeResponse(w, ErrorResponse(datatable.ErrNoSession))
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) viewer(r *http.Request) datatable.ViewerContext {
	session, _ := datatable.SessionFromContext(r.Context())
	return ViewerFor(session, InferLocale(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language")))
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeResponse(w, ErrorResponse(err))
		return
	}
	resp, session := h.Executor.SignIn(r.Context(), body)
	if session != nil {
		http.SetCookie(w, SessionCookie(h.CookieName, h.cookiePath(), session))
	}
	writeResponse(w, resp)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	session, _ := datatable.SessionFromContext(r.Context())
	resp := h.Executor.SignOut(r.Context(), session.Token)
	http.SetCookie(w, SessionCookie(h.CookieName, h.cookiePath(), nil))
	writeResponse(w, resp)
}

func (h *Handlers) tables(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, h.Executor.ListTables(r.Context(), h.viewer(r)))
}

func (h *Handlers) table(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, h.Executor.TableState(r.Context(), h.viewer(r), r.PathValue("table")))
}

// submit runs a table operation from a JSON body or a table page form. Form
// posts are redirected back to the table page once the operation succeeds.
func (h *Handlers) submit(run func(context.Context, datatable.ViewerContext, string, []byte) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeResponse(w, ErrorResponse(err))
			return
		}
		payload, form, err := FormPayload(r.Header.Get("Content-Type"), body)
		if err != nil {
			writeResponse(w, ErrorResponse(err))
			return
		}
		table := r.PathValue("table")
		resp := run(r.Context(), h.viewer(r), table, payload)
		if form && resp.Status == http.StatusOK {
			http.Redirect(w, r, TablePagePath(h.BasePath, table), http.StatusSeeOther)
			return
		}
		writeResponse(w, resp)
	}
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	writeResponse(w, h.Executor.ExportTable(r.Context(), h.viewer(r), r.PathValue("table"), format))
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	writeResponse(w, h.Executor.TableSummary(r.Context(), h.viewer(r), r.PathValue("table"), query.Get("by"), query.Get("chart")))
}

func (h *Handlers) tablePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Controller.RenderTemplate(r.Context(), h.viewer(r), r.PathValue("table"), &buf); err != nil {
		writeResponse(w, ErrorResponse(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) cookiePath() string {
	if h.BasePath == "" {
		return "/"
	}
	return h.BasePath
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.Raw != nil {
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Raw)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp.Body)
}
