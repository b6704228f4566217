package memstore

import (
	"context"
	"sync"

	"github.com/JandsonS/teste-sub000/internal/auth"
)

// Users keeps admin accounts in memory.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]auth.User
}

func NewUsers() *Users { return &Users{byMail: make(map[string]auth.User)} }

func (u *Users) CreateUser(_ context.Context, email, passwordHash string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byMail[email]; ok {
		return 0, auth.ErrUserExists
	}
	u.nextID++
	u.byMail[email] = auth.User{ID: u.nextID, Email: email, PasswordHash: passwordHash}
	return u.nextID, nil
}

func (u *Users) UserByEmail(_ context.Context, email string) (auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.byMail[email]
	if !ok {
		return auth.User{}, auth.ErrInvalidCredentials
	}
	return usr, nil
}
