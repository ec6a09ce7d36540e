package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory UserRepo. It also backs the "memory" user
// store of the server.
type FakeUserRepo struct {
	users    map[string]users.User
	loginIds map[string]string // login to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]users.User),
		loginIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if ownerID, ok := ur.loginIds[user.Login]; ok && ownerID != user.ID {
		return users.ErrLoginTaken
	}
	if prev, ok := ur.users[user.ID]; ok && prev.Login != user.Login {
		delete(ur.loginIds, prev.Login)
	}

	ur.users[user.ID] = *user
	ur.loginIds[user.Login] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByLogin(_ context.Context, login string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.loginIds[login]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

// Delete removes the user with id, if present.
func (ur *FakeUserRepo) Delete(id string) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if u, ok := ur.users[id]; ok {
		delete(ur.loginIds, u.Login)
		delete(ur.users, id)
	}
}
