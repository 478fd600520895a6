package accounts

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ accountsRepo = (*repoMock)(nil)

// same code the real repo surfaces on a duplicated email
var errMockUniqueViolation = &pgconn.PgError{Code: "23505"}

type repoMock struct {
	Users  map[int]*User
	Links  map[int]*ClientLink
	Hashes map[int]string
	mutex  sync.Mutex

	nextUserID int
	nextLinkID int
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users:      make(map[int]*User),
		Links:      make(map[int]*ClientLink),
		Hashes:     make(map[int]string),
		nextUserID: 1,
		nextLinkID: 1,
	}
}

func (r *repoMock) AddUser(_ context.Context, user User, passwordHash string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Email == user.Email {
			return nil, errMockUniqueViolation
		}
	}

	user.ID = r.nextUserID
	r.nextUserID++
	r.Users[user.ID] = &user
	r.Hashes[user.ID] = passwordHash

	return &user, nil
}

func (r *repoMock) GetUser(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) FindLogin(_ context.Context, email string) (int, string, string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, u := range r.Users {
		if u.Email == email {
			return id, u.Role, r.Hashes[id], nil
		}
	}
	return 0, "", "", ErrUserNotFound
}

func (r *repoMock) ListClients(_ context.Context, trainerID int) ([]User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	clients := make([]User, 0)
	for _, link := range r.Links {
		if link.TrainerID != trainerID {
			continue
		}
		if client, ok := r.Users[link.ClientID]; ok {
			clients = append(clients, *client)
		}
	}
	return clients, nil
}

func (r *repoMock) ClientsCount(_ context.Context, trainerID int) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0
	for _, link := range r.Links {
		if link.TrainerID == trainerID {
			count++
		}
	}
	return count, nil
}

func (r *repoMock) IsLinked(_ context.Context, trainerID, clientID int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, link := range r.Links {
		if link.TrainerID == trainerID && link.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repoMock) LinkClient(_ context.Context, trainerID, clientID int) (*ClientLink, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, link := range r.Links {
		if link.TrainerID == trainerID && link.ClientID == clientID {
			return nil, ErrAlreadyLinked
		}
	}

	link := &ClientLink{
		ID:        r.nextLinkID,
		ClientID:  clientID,
		TrainerID: trainerID,
	}
	r.nextLinkID++
	r.Links[link.ID] = link

	return link, nil
}

func (r *repoMock) UnlinkClient(_ context.Context, trainerID, clientID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, link := range r.Links {
		if link.TrainerID == trainerID && link.ClientID == clientID {
			delete(r.Links, id)
			return nil
		}
	}
	return ErrLinkNotFound
}
