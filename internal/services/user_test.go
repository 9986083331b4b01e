package services

import (
	"context"
	"sync"
	"testing"

	"github.com/tasknest/apiserver/internal/store"
	"github.com/tasknest/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicateUser
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func TestUserService_RegisterHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	service := NewUserService(repo)

	user, err := service.Register(context.Background(), "alice@example.com", "secret1", "Alice Doe")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.Password == "secret1" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	repo := newFakeUserRepo()
	service := NewUserService(repo)
	ctx := context.Background()

	if _, err := service.Register(ctx, "alice@example.com", "secret1", "Alice Doe"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := service.Register(ctx, "alice@example.com", "another", "Alice Again"); err != store.ErrDuplicateUser {
		t.Errorf("second Register() error = %v, want store.ErrDuplicateUser", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := newFakeUserRepo()
	service := NewUserService(repo)
	ctx := context.Background()

	registered, err := service.Register(ctx, "alice@example.com", "secret1", "Alice Doe")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := service.Authenticate(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("authenticated id = %v, want %v", user.ID, registered.ID)
	}

	if _, err := service.Authenticate(ctx, "alice@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Authenticate(ctx, "bob@example.com", "secret1"); err != store.ErrNotFound {
		t.Errorf("unknown user error = %v, want store.ErrNotFound", err)
	}
}

func TestUserService_ChangePasswordRehashes(t *testing.T) {
	repo := newFakeUserRepo()
	service := NewUserService(repo)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice@example.com", "secret1", "Alice Doe")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := service.ChangePassword(ctx, user.ID, "secret2"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := service.Authenticate(ctx, "alice@example.com", "secret1"); err != ErrInvalidCredentials {
		t.Errorf("old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Authenticate(ctx, "alice@example.com", "secret2"); err != nil {
		t.Errorf("new password error = %v", err)
	}
}

func TestUserService_UpdateProfileKeepsHash(t *testing.T) {
	repo := newFakeUserRepo()
	service := NewUserService(repo)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice@example.com", "secret1", "Alice Doe")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	updated, err := service.UpdateProfile(ctx, user.ID, "alice@example.com", "Alice D.")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Password != user.Password {
		t.Error("profile update changed the password hash")
	}
	if updated.Fullname != "Alice D." {
		t.Errorf("updated.Fullname = %q", updated.Fullname)
	}
}
