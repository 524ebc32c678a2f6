// Package session keeps the dashboard login in a signed, encrypted cookie.
package session

import (
	"net/http"
	"time"

	"stock-forecast/config"

	"github.com/gorilla/securecookie"
)

const (
	sessionCookie = "session"
	flashCookie   = "flash"
)

// SessionManager handles secure cookie encoding/decoding
type SessionManager struct {
	sc       *securecookie.SecureCookie
	isSecure bool
	maxAge   int
}

// SessionData represents the data stored in session cookie
type SessionData struct {
	UserID    uint  `json:"user_id"`
	CreatedAt int64 `json:"created_at"`
}

func NewSessionManager(cfg config.Dashboard) *SessionManager {
	maxAge := int(cfg.SessionMaxAge.Seconds())

	sc := securecookie.New([]byte(cfg.SessionHashKey), []byte(cfg.SessionBlockKey))
	sc.MaxAge(maxAge)

	return &SessionManager{
		sc:       sc,
		isSecure: cfg.SecureCookie,
		maxAge:   maxAge,
	}
}

func (sm *SessionManager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   sm.isSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSession creates a signed session cookie
func (sm *SessionManager) SetSession(w http.ResponseWriter, userID uint) error {
	data := SessionData{
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
	}

	encoded, err := sm.sc.Encode(sessionCookie, data)
	if err != nil {
		return err
	}

	sm.setCookie(w, sessionCookie, encoded, sm.maxAge)
	return nil
}

// GetSession reads and validates session cookie
func (sm *SessionManager) GetSession(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}

	var data SessionData
	if err := sm.sc.Decode(sessionCookie, cookie.Value, &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// ClearSession removes the session cookie
func (sm *SessionManager) ClearSession(w http.ResponseWriter) {
	sm.setCookie(w, sessionCookie, "", -1)
}

// SetFlash stores a one-shot message shown on the next page render.
func (sm *SessionManager) SetFlash(w http.ResponseWriter, message string) error {
	encoded, err := sm.sc.Encode(flashCookie, message)
	if err != nil {
		return err
	}
	sm.setCookie(w, flashCookie, encoded, 60)
	return nil
}

// PopFlash returns the pending flash message, if any, and clears it.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	sm.setCookie(w, flashCookie, "", -1)

	var message string
	if err := sm.sc.Decode(flashCookie, cookie.Value, &message); err != nil {
		return ""
	}
	return message
}
