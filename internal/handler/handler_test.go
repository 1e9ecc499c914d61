package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/handler"
	sqliteRepo "github.com/sakif/streamhub/internal/repository/sqlite"
	"github.com/sakif/streamhub/internal/service"
	"github.com/sakif/streamhub/internal/storage"
)

// testEnv wires a real router against an in-memory database, so requests
// exercise the same path production traffic does: routing, auth middleware,
// handlers, services, and the stores.
type testEnv struct {
	router *chi.Mux
	db     *sqliteRepo.DB
}

// envelope mirrors the response shape for decoding in assertions. Data stays
// raw so each test can decode it into whatever it expects.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	accessTokens, err := auth.NewTokenService("access-secret-16-chars-min!!", 15*time.Minute)
	if err != nil {
		t.Fatalf("creating access token service: %v", err)
	}
	refreshTokens, err := auth.NewTokenService("refresh-secret-16-chars-min!", 24*time.Hour)
	if err != nil {
		t.Fatalf("creating refresh token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	assets, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("creating local storage: %v", err)
	}

	users := db.Users()
	accountService := service.NewAccountService(users, passwords, logger)
	sessionService := service.NewSessionService(users, passwords, accessTokens, refreshTokens, logger)
	channelService := service.NewChannelService(users, db.Videos(), db.Subscriptions(), logger)

	accountHandler := handler.NewAccountHandler(accountService, assets, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	channelHandler := handler.NewChannelHandler(channelService, logger)

	requireAuth := auth.RequireAuth(accessTokens, users)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", accountHandler.HandleRegister)
			r.Post("/login", sessionHandler.HandleLogin)
			r.Post("/refresh-token", sessionHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", sessionHandler.HandleLogout)
				r.Post("/change-password", accountHandler.HandleChangePassword)
				r.Get("/current-user", accountHandler.HandleCurrentUser)
				r.Patch("/update-account", accountHandler.HandleUpdateAccount)
				r.Patch("/avatar", accountHandler.HandleUpdateAvatar)
				r.Patch("/cover-image", accountHandler.HandleUpdateCover)
				r.Get("/c/{username}", channelHandler.HandleChannelProfile)
				r.Get("/history", channelHandler.HandleWatchHistory)
				r.Post("/history/{videoId}", channelHandler.HandleWatchHistoryAppend)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/subscriptions/{channelId}", channelHandler.HandleToggleSubscription)
		})
	})

	return &testEnv{router: router, db: db}
}

// do runs a request through the router and returns the recorder.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// postJSON builds a POST request with a JSON body.
func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// registerForm builds the multipart register request. The avatar and
// coverImage flags toggle the corresponding file parts, so tests can cover
// the missing-file cases.
func registerForm(t *testing.T, fields map[string]string, avatar, coverImage bool) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("writing field %s: %v", name, err)
		}
	}
	if avatar {
		part, err := mw.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("creating avatar part: %v", err)
		}
		part.Write([]byte("fake png bytes"))
	}
	if coverImage {
		part, err := mw.CreateFormFile("coverImage", "cover.jpg")
		if err != nil {
			t.Fatalf("creating cover part: %v", err)
		}
		part.Write([]byte("fake jpg bytes"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// registerUser registers an account through the HTTP surface and fails the
// test if anything but a 201 comes back.
func (e *testEnv) registerUser(t *testing.T, username, email, password string) {
	t.Helper()
	rr := e.do(registerForm(t, map[string]string{
		"fullName": "Test User",
		"username": username,
		"email":    email,
		"password": password,
	}, true, false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, rr.Code, rr.Body.String())
	}
}

// login authenticates and returns the session cookies.
func (e *testEnv) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	rr := e.do(postJSON(t, "/api/v1/users/login", map[string]string{
		"username": username,
		"password": password,
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, rr.Code, rr.Body.String())
	}
	return rr.Result().Cookies()
}

// withCookies attaches session cookies to a request.
func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// decodeEnvelope parses the uniform response shape.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope from %q: %v", rr.Body.String(), err)
	}
	return env
}

// cookieByName finds a cookie in a Set-Cookie response, nil when absent.
func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
