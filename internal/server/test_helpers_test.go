package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/notewall/backend/internal/auth"
	"github.com/notewall/backend/internal/notes"
	"github.com/notewall/backend/internal/users"
)

const (
	testSigningSecret = "router-test-secret"
	testCookieName    = "notewall_session"
)

type testEnv struct {
	handler      http.Handler
	db           *gorm.DB
	usersService *users.Service
	notesService *notes.Service
}

func newTestEnv(t *testing.T, dbName string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &notes.Note{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{Database: db, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{Database: db, IDProvider: notes.NewUUIDProvider()})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}

	issuer := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "notewall",
		Audience:      "notewall-web",
		SessionTTL:    time.Hour,
	})
	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "notewall",
		Audience:      "notewall-web",
		CookieName:    testCookieName,
	})
	if err != nil {
		t.Fatalf("failed to build session validator: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		UsersService:     usersService,
		NotesService:     notesService,
		SessionIssuer:    issuer,
		SessionValidator: validator,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &testEnv{
		handler:      handler,
		db:           db,
		usersService: usersService,
		notesService: notesService,
	}
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

// registerUser drives the real registration route and returns the session
// cookie minted for the new account.
func (e *testEnv) registerUser(t *testing.T, username string) *http.Cookie {
	t.Helper()
	recorder := e.postForm(t, "/register", url.Values{
		"username":   {username},
		"password":   {"pw1"},
		"email":      {username + "@x.com"},
		"first_name": {"Test"},
		"last_name":  {"T"},
	})
	if recorder.Code != http.StatusFound {
		t.Fatalf("expected redirect after registration, got %d: %s", recorder.Code, recorder.Body.String())
	}
	cookie := findCookie(recorder, testCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a session cookie after registration")
	}
	return cookie
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func flashMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	cookie := findCookie(recorder, flashCookieName)
	if cookie == nil {
		return ""
	}
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		t.Fatalf("failed to unescape flash cookie: %v", err)
	}
	return message
}
