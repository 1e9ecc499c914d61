package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository. A plain fake (no
// mock framework) keeps the tests readable; a mutex makes the
// compare-and-rotate step atomic, matching the store's contract.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	// history maps user ID to the append-ordered video references.
	history map[string][]string
	// set to simulate a store failure
	err error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*model.User),
		history: make(map[string][]string),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}

	user.Username = model.NormalizeIdentifier(user.Username)
	user.Email = model.NormalizeIdentifier(user.Email)
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperror.Conflict("user", user.Username)
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username = model.NormalizeIdentifier(username)
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identifier = model.NormalizeIdentifier(identifier)
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", identifier)
}

func (f *fakeUserRepo) Update(ctx context.Context, id string, upd repository.AccountUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Email != nil {
		u.Email = model.NormalizeIdentifier(*upd.Email)
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.CoverURL != nil {
		u.CoverURL = *upd.CoverURL
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.RefreshToken = token
	return nil
}

func (f *fakeUserRepo) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.RefreshToken == "" || u.RefreshToken != presented {
		return repository.ErrStaleRefreshToken
	}
	u.RefreshToken = next
	return nil
}

func (f *fakeUserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (f *fakeUserRepo) WatchHistory(ctx context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.history[id]...), nil
}

func (f *fakeUserRepo) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[id] = append(f.history[id], videoID)
	return nil
}

// fakeVideoRepo is an in-memory repository.VideoRepository.
type fakeVideoRepo struct {
	videos map[string]*model.Video
	nextID int
}

var _ repository.VideoRepository = (*fakeVideoRepo)(nil)

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[string]*model.Video)}
}

func (f *fakeVideoRepo) Create(ctx context.Context, video *model.Video) error {
	f.nextID++
	video.ID = fmt.Sprintf("video-%d", f.nextID)
	copied := *video
	f.videos[video.ID] = &copied
	return nil
}

func (f *fakeVideoRepo) GetByID(ctx context.Context, id string) (*model.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, apperror.NotFound("video", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVideoRepo) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Video, error) {
	var out []model.Video
	for _, v := range f.videos {
		if v.OwnerID == ownerID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.videos[id]; !ok {
		return apperror.NotFound("video", id)
	}
	delete(f.videos, id)
	return nil
}

// fakeSubRepo is an in-memory repository.SubscriptionRepository.
type fakeSubRepo struct {
	edges []model.Subscription
}

var _ repository.SubscriptionRepository = (*fakeSubRepo)(nil)

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{}
}

func (f *fakeSubRepo) Create(ctx context.Context, sub *model.Subscription) error {
	f.edges = append(f.edges, *sub)
	return nil
}

func (f *fakeSubRepo) Delete(ctx context.Context, subscriberID, channelID string) error {
	kept := f.edges[:0]
	for _, e := range f.edges {
		if e.SubscriberID != subscriberID || e.ChannelID != channelID {
			kept = append(kept, e)
		}
	}
	f.edges = kept
	return nil
}

func (f *fakeSubRepo) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	for _, e := range f.edges {
		if e.SubscriberID == subscriberID && e.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubRepo) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	var n int64
	for _, e := range f.edges {
		if e.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubRepo) CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error) {
	var n int64
	for _, e := range f.edges {
		if e.SubscriberID == subscriberID {
			n++
		}
	}
	return n, nil
}

// test wiring helpers

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(bcrypt.MinCost)
}

func testTokens(t *testing.T) (access, refresh *auth.TokenService) {
	t.Helper()
	access, err := auth.NewTokenService("access-secret-16-chars-min!!", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	refresh, err = auth.NewTokenService("refresh-secret-16-chars-min!", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return access, refresh
}

// registerUser seeds the fake repo through the account service so the
// stored password is a real hash.
func registerUser(t *testing.T, accounts *AccountService, username, email, password string) *model.User {
	t.Helper()
	user, err := accounts.Register(context.Background(), RegisterInput{
		FullName:  "Test User",
		Username:  username,
		Email:     email,
		Password:  password,
		AvatarURL: "https://assets.example.com/avatar.png",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return user
}
