package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
}

// UserRepo persists admin accounts.
type UserRepo interface {
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
	// UserByEmail returns ErrInvalidCredentials when no such user exists.
	UserByEmail(ctx context.Context, email string) (User, error)
}

type Store struct {
	sc     *securecookie.SecureCookie
	users  UserRepo
	maxAge time.Duration
}

const sessionTTL = 12 * time.Hour

func NewStore(users UserRepo, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, users: users, maxAge: sessionTTL}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Store) CreateUser(ctx context.Context, email, password string) (int64, error) {
	if len(password) < 8 {
		return 0, errors.New("password must have at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.users.CreateUser(ctx, normalizeEmail(email), hash)
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (int64, error) {
	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return 0, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return 0, ErrInvalidCredentials
	}
	return u.ID, nil
}

type Session struct {
	UserID int64
	V      int
}

const cookieName = "salonbook_session"

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := s.sc.Encode(cookieName, Session{UserID: userID, V: 1})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(s.maxAge.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return Session{}, false
	}
	if sess.UserID <= 0 {
		return Session{}, false
	}
	return sess, true
}

const adminIDKey = "adminID"

// RequireAdmin rejects requests without a valid admin session.
func (s *Store) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.GetSession(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthorized"})
			return
		}
		c.Set(adminIDKey, sess.UserID)
		c.Next()
	}
}

func AdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(adminIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
