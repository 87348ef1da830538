package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/convenios-ui/internal/data"
	"github.com/target/convenios-ui/internal/devseed"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	authmocks "github.com/target/convenios-ui/internal/mocks/auth"
	"github.com/target/convenios-ui/internal/ports"
	"github.com/target/convenios-ui/internal/service"
)

const (
	adminEmail   = "admin@example.com"
	managerEmail = "gerente@example.com"
	userEmail    = "usuario@example.com"
)

type harness struct {
	provider *authmocks.MemoryProvider
	records  *authmocks.MemoryUserRecords
	store    *service.MemoryBoardStore
	clock    *data.FixedTimeProvider
	auth     *service.AuthService
	board    *service.BoardService
	handler  http.Handler
}

type harnessOptions struct {
	source ports.WorkItemSource
	writer ports.AssignmentWriter
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()
	var o harnessOptions
	for _, fn := range opts {
		fn(&o)
	}

	provider := authmocks.NewMemoryProvider()
	provider.AddUser("u-admin", adminEmail, "admin123")
	provider.AddUser("u-gerente", managerEmail, "gerente123")
	provider.AddUser("u-usuario", userEmail, "usuario123")
	records := authmocks.NewMemoryUserRecords(
		domainauth.UserRecord{ID: "u-admin", Name: "Administrador", Email: adminEmail, RoleString: "admin"},
		domainauth.UserRecord{ID: "u-gerente", Name: "Gerente", Email: managerEmail, RoleString: "gerente", Department: "Contratos"},
		domainauth.UserRecord{ID: "u-usuario", Name: "Usuário", Email: userEmail, RoleString: "padrao"},
	)

	clock := data.NewFixedTimeProvider(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	logger := discardLogger()
	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider:     provider,
		Records:      records,
		Roles:        authmocks.DefaultRoleMapper(),
		TimeProvider: clock,
		Logger:       logger,
	})
	store := service.NewMemoryBoardStore()
	var source ports.WorkItemSource = devseed.StaticSource{}
	if o.source != nil {
		source = o.source
	}
	boardSvc := service.NewBoardService(service.BoardServiceOptions{
		Source:       source,
		Store:        store,
		Writer:       o.writer,
		TimeProvider: clock,
		DragTTL:      time.Minute,
		Logger:       logger,
	})

	return &harness{
		provider: provider,
		records:  records,
		store:    store,
		clock:    clock,
		auth:     auth,
		board:    boardSvc,
		handler: NewRouter(RouterServices{
			Auth:   auth,
			Board:  boardSvc,
			Logger: logger,
		}),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		if s, ok := body.(string); ok {
			r = bytes.NewBufferString(s)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			r = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
