// internal/domain/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"gorm.io/gorm"
)

// ErrEmailTaken is returned when registering an address that already has an account
var ErrEmailTaken = errors.New("user with this email already exists")

// Repository persists customer accounts
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	TouchLogin(ctx context.Context, id uint, at time.Time) error
}

// GormRepository stores users in PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a gorm backed user repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	if err := dbtx.Conn(ctx, r.db).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Validation("user.Create", "%v", ErrEmailTaken)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := dbtx.Conn(ctx, r.db).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user.GetByID", "user %d not found", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := dbtx.Conn(ctx, r.db).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user.GetByEmail", "user %s not found", email)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	if err := dbtx.Conn(ctx, r.db).Model(&User{}).Where("id = ?", id).Update("last_login_at", at).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// MemoryRepository keeps users in process memory
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[uint]*User
	nextID uint
}

// NewMemoryRepository creates an empty in-memory user repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uint]*User)}
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperror.Validation("user.Create", "%v", ErrEmailTaken)
		}
	}
	r.nextID++
	u.ID = r.nextID
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uint) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user.GetByID", "user %d not found", id)
	}
	found := *u
	return &found, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user.GetByEmail", "user %s not found", email)
}

func (r *MemoryRepository) TouchLogin(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		login := at
		u.LastLoginAt = &login
	}
	return nil
}
