package service_test

import (
	"context"
	"testing"
	"time"

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/events"
	"AuthVaultPlatform/internal/pkg/kdf"
	"AuthVaultPlatform/internal/pkg/password"
	"AuthVaultPlatform/internal/repository"
	"AuthVaultPlatform/internal/service"
	"AuthVaultPlatform/internal/worker"
	"AuthVaultPlatform/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSysAdminRepository для тестов
type MockSysAdminRepository struct {
	mock.Mock
}

func (m *MockSysAdminRepository) FindByUsername(ctx context.Context, username string) (*domain.SysAdmin, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SysAdmin), args.Error(1)
}

func (m *MockSysAdminRepository) UpdateUsername(ctx context.Context, id, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *MockSysAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type adminTestEnv struct {
	service service.AdminService
	admins  *MockSysAdminRepository
	ledger  *fakeLedger
	hasher  password.Hasher
}

func newAdminTestEnv(t *testing.T) *adminTestEnv {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "admin-service-test")
	require.NoError(t, err)

	pool, err := worker.NewPool(&worker.Config{
		WorkerCount:     2,
		QueueSize:       16,
		ShutdownTimeout: 5 * time.Second,
	}, log, nil)
	require.NoError(t, err)
	pool.Start()
	t.Cleanup(func() { pool.Stop(context.Background()) })

	admins := new(MockSysAdminRepository)
	ledger := newFakeLedger()
	hasher := password.NewBcryptHasher(testBcryptCost)

	svc := service.NewAdminService(admins, ledger, hasher, pool,
		events.NoopPublisher{}, log, nil)

	return &adminTestEnv{service: svc, admins: admins, ledger: ledger, hasher: hasher}
}

func (e *adminTestEnv) newAdmin(t *testing.T, username, pass string) *domain.SysAdmin {
	t.Helper()
	hash, err := e.hasher.Hash(pass)
	require.NoError(t, err)
	return &domain.SysAdmin{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
	}
}

func TestAdminAuthenticate_Success(t *testing.T) {
	env := newAdminTestEnv(t)
	admin := env.newAdmin(t, "root", "Adm1nPass")

	env.admins.On("FindByUsername", mock.Anything, "root").Return(admin, nil)

	session, err := env.service.Authenticate(context.Background(), "root", "Adm1nPass")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, admin.ID, session.ID)
	assert.NotEmpty(t, session.Token)

	ctx := context.Background()

	// В реестре лежат производный ключ и промежуточный хеш
	derived, found, _ := env.ledger.Get(ctx, domain.AdminPBKDFKey(admin.ID))
	require.True(t, found)

	intermediate, found, _ := env.ledger.Get(ctx, domain.AdminHashKey(admin.ID))
	require.True(t, found)

	// Предъявленная соль вместе с промежуточным хешем воспроизводит ключ
	assert.Equal(t, derived, kdf.DeriveKey(intermediate, session.Token))

	// Промежуточный хеш связан с парой username+password
	assert.True(t, env.hasher.Check("root"+"Adm1nPass", intermediate))
}

func TestAdminAuthenticate_NotFound(t *testing.T) {
	env := newAdminTestEnv(t)

	env.admins.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)

	session, err := env.service.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, service.ErrAdminNotFound)
	assert.Nil(t, session)
}

func TestAdminAuthenticate_PasswordMismatch(t *testing.T) {
	env := newAdminTestEnv(t)
	admin := env.newAdmin(t, "root", "Adm1nPass")

	env.admins.On("FindByUsername", mock.Anything, "root").Return(admin, nil)

	session, err := env.service.Authenticate(context.Background(), "root", "wrong")
	assert.ErrorIs(t, err, service.ErrPasswordMismatch)
	assert.Nil(t, session)
}

func TestAdminLogout(t *testing.T) {
	env := newAdminTestEnv(t)
	admin := env.newAdmin(t, "root", "Adm1nPass")

	env.admins.On("FindByUsername", mock.Anything, "root").Return(admin, nil)

	ctx := context.Background()

	_, err := env.service.Authenticate(ctx, "root", "Adm1nPass")
	require.NoError(t, err)

	err = env.service.Logout(ctx, admin.ID)
	require.NoError(t, err)

	// Повторный выход: уже разлогинен
	err = env.service.Logout(ctx, admin.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyLoggedOut)
}

func TestAdminLogout_HalfExpiredSession(t *testing.T) {
	env := newAdminTestEnv(t)
	admin := env.newAdmin(t, "root", "Adm1nPass")

	env.admins.On("FindByUsername", mock.Anything, "root").Return(admin, nil)

	ctx := context.Background()

	_, err := env.service.Authenticate(ctx, "root", "Adm1nPass")
	require.NoError(t, err)

	// Одна запись уже истекла: снятие оставшейся все еще успешный выход
	env.ledger.remove(domain.AdminHashKey(admin.ID))

	err = env.service.Logout(ctx, admin.ID)
	assert.NoError(t, err)
}

func TestAdminUpdateUsername(t *testing.T) {
	env := newAdminTestEnv(t)
	adminID := uuid.New().String()

	env.admins.On("UpdateUsername", mock.Anything, adminID, "newroot").Return(nil)

	err := env.service.UpdateUsername(context.Background(), adminID, "newroot")
	assert.NoError(t, err)
	env.admins.AssertExpectations(t)
}

func TestAdminUpdateUsername_NotFound(t *testing.T) {
	env := newAdminTestEnv(t)
	adminID := uuid.New().String()

	env.admins.On("UpdateUsername", mock.Anything, adminID, "newroot").
		Return(repository.ErrSysAdminNotFound)

	err := env.service.UpdateUsername(context.Background(), adminID, "newroot")
	assert.ErrorIs(t, err, service.ErrAdminNotFound)
}

func TestAdminUpdatePassword(t *testing.T) {
	env := newAdminTestEnv(t)
	adminID := uuid.New().String()

	env.admins.On("UpdatePassword", mock.Anything, adminID, mock.MatchedBy(func(hash string) bool {
		// Хранится bcrypt хеш, а не открытый пароль
		return hash != "NewAdm1nPass" && env.hasher.Check("NewAdm1nPass", hash)
	})).Return(nil)

	err := env.service.UpdatePassword(context.Background(), adminID, "NewAdm1nPass")
	assert.NoError(t, err)
	env.admins.AssertExpectations(t)
}

func TestAdminUpdatePassword_Weak(t *testing.T) {
	env := newAdminTestEnv(t)

	err := env.service.UpdatePassword(context.Background(), uuid.New().String(), "weak")
	assert.ErrorIs(t, err, service.ErrWeakPassword)
}
