package user

import (
	"context"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = gerrors.New("user not found")

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is a learner or assigner account within one portal.
type User struct {
	id        int64
	tenantID  uuid.UUID
	email     string
	firstName string
	lastName  string
	status    Status
	createdAt time.Time
}

type Option func(*User)

func WithID(id int64) Option {
	return func(u *User) {
		u.id = id
	}
}

func WithStatus(status Status) Option {
	return func(u *User) {
		u.status = status
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(u *User) {
		u.createdAt = createdAt
	}
}

func New(tenantID uuid.UUID, email, firstName, lastName string, opts ...Option) *User {
	u := &User{
		tenantID:  tenantID,
		email:     email,
		firstName: firstName,
		lastName:  lastName,
		status:    StatusActive,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *User) ID() int64 { return u.id }

func (u *User) TenantID() uuid.UUID { return u.tenantID }

func (u *User) Email() string { return u.email }

func (u *User) FirstName() string { return u.firstName }

func (u *User) LastName() string { return u.lastName }

func (u *User) Status() Status { return u.status }

func (u *User) CreatedAt() time.Time { return u.createdAt }

func (u *User) FullName() string {
	return strings.TrimSpace(u.firstName + " " + u.lastName)
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
}
