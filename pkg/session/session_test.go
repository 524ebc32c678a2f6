package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-forecast/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *SessionManager {
	return NewSessionManager(config.Dashboard{
		SessionHashKey:  "0123456789abcdef0123456789abcdef",
		SessionBlockKey: "abcdef0123456789abcdef0123456789",
		SessionMaxAge:   time.Hour,
	})
}

func cookieNamed(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSessionManager_SetAndGetSession(t *testing.T) {
	sm := testManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SetSession(w, 123))

	cookie := cookieNamed(t, w, "session")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	data, err := sm.GetSession(req)
	require.NoError(t, err)
	assert.Equal(t, uint(123), data.UserID)
	assert.NotZero(t, data.CreatedAt)
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := testManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "tampered"})

	_, err := sm.GetSession(req)
	assert.Error(t, err)

	_, err = sm.GetSession(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}

func TestSessionManager_ClearSession(t *testing.T) {
	sm := testManager()

	w := httptest.NewRecorder()
	sm.ClearSession(w)

	cookie := cookieNamed(t, w, "session")
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestSessionManager_Flash(t *testing.T) {
	sm := testManager()

	w := httptest.NewRecorder()
	require.NoError(t, sm.SetFlash(w, "Prediction failed"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieNamed(t, w, "flash"))

	w2 := httptest.NewRecorder()
	assert.Equal(t, "Prediction failed", sm.PopFlash(w2, req))
	assert.Less(t, cookieNamed(t, w2, "flash").MaxAge, 0, "flash is cleared after reading")
}
