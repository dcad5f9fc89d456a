package export

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.agora/internal/lock"
	"uk.co.dudmesh.agora/internal/model"
	"uk.co.dudmesh.agora/internal/policy"
	"uk.co.dudmesh.agora/internal/queue"
	"uk.co.dudmesh.agora/internal/store"
)

type testConfig struct {
	dataDir string
}

func (c testConfig) LockExpiry() time.Duration      { return time.Minute }
func (c testConfig) DataDirectory() string          { return c.dataDir }
func (c testConfig) BackupRetention() time.Duration { return 7 * 24 * time.Hour }

type recordingProducer struct {
	mu     sync.Mutex
	jobs   []queue.Job
	onPush func(job queue.Job)
	err    error
}

func (p *recordingProducer) Enqueue(ctx context.Context, job queue.Job) error {
	if p.onPush != nil {
		p.onPush(job)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type allowAll struct{}

func (allowAll) Create(ctx context.Context, user *model.User) error { return nil }

type countingLocker struct {
	lock.Locker
	acquires int
}

func (l *countingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	l.acquires++
	return l.Locker.Acquire(ctx, key, ttl)
}

// gatedStore blocks CreateBackup until release is closed.
type gatedStore struct {
	*store.Store
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) CreateBackup(ctx context.Context, backup *model.Backup) error {
	s.entered <- struct{}{}
	<-s.release
	return s.Store.CreateBackup(ctx, backup)
}

func setup(t *testing.T) (*store.Store, *model.User) {
	t.Helper()
	s, err := store.Open("file:" + model.CreateID() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	account := &model.Account{ID: model.NewAccountID(), Username: "alice", DisplayName: "Alice", CreatedAt: time.Now().UTC()}
	user := &model.User{ID: model.NewUserID(), Email: "alice@example.com", CreatedAt: account.CreatedAt, Confirmed: true, Approved: true}
	require.NoError(t, s.CreateAccount(context.Background(), account, user))
	return s, user
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)

	locker := lock.NewMemoryLocker()
	producer := &recordingProducer{}
	producer.onPush = func(queue.Job) {
		assert.False(locker.IsLocked(LockKey(user.ID)), "job is enqueued after the lock is released")
	}
	svc := New(testConfig{t.TempDir()}, db, locker, policy.NewBackupPolicy(db, 24*time.Hour), producer)

	handle, err := svc.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(RedirectPath, handle.RedirectURL)
	assert.Equal(user.ID, handle.Backup.UserID)
	assert.Equal(model.BackupStatusPending, handle.Backup.Status)

	require.Len(t, producer.jobs, 1)
	assert.Equal(JobType, producer.jobs[0].Type)
	var payload JobPayload
	require.NoError(t, producer.jobs[0].Decode(&payload))
	assert.Equal(handle.Backup.ID, payload.BackupID)

	backups, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(handle.Backup.ID, backups[0].ID)

	t.Run("minimum interval refuses a second backup", func(t *testing.T) {
		_, err := svc.Create(ctx, user)
		assert.ErrorIs(err, model.ErrorNotAuthorized)
		assert.False(locker.IsLocked(LockKey(user.ID)), "lock released when the policy refuses")
		assert.Len(producer.jobs, 1)

		backups, err := svc.List(ctx, user)
		require.NoError(t, err)
		assert.Len(backups, 1)
	})
}

func TestCreateNotPermitted(t *testing.T) {
	assert := assert.New(t)
	db, _ := setup(t)

	locker := &countingLocker{Locker: lock.NewMemoryLocker()}
	producer := &recordingProducer{}
	svc := New(testConfig{t.TempDir()}, db, locker, allowAll{}, producer)

	handle, err := svc.Create(context.Background(), nil)
	assert.ErrorIs(err, model.ErrorNotPermitted)
	assert.Nil(handle)
	assert.Zero(locker.acquires, "no lock is attempted for anonymous callers")
	assert.Empty(producer.jobs)

	_, err = svc.List(context.Background(), nil)
	assert.ErrorIs(err, model.ErrorNotPermitted)
}

func TestCreateConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)

	gated := &gatedStore{Store: db, entered: make(chan struct{}, 1), release: make(chan struct{})}
	locker := lock.NewMemoryLocker()
	producer := &recordingProducer{}
	svc := New(testConfig{t.TempDir()}, gated, locker, policy.NewBackupPolicy(gated, 0), producer)

	type result struct {
		handle *model.ExportHandle
		err    error
	}
	first := make(chan result, 1)
	go func() {
		handle, err := svc.Create(ctx, user)
		first <- result{handle, err}
	}()

	<-gated.entered
	_, err := svc.Create(ctx, user)
	assert.ErrorIs(err, model.ErrorRaceCondition)

	close(gated.release)
	r := <-first
	require.NoError(t, r.err)
	assert.Len(producer.jobs, 1)

	backups, err := db.ListBackups(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(backups, 1)

	t.Run("later request succeeds", func(t *testing.T) {
		go func() { <-gated.entered }()
		handle, err := svc.Create(ctx, user)
		require.NoError(t, err)
		assert.NotEqual(r.handle.Backup.ID, handle.Backup.ID)
		assert.Len(producer.jobs, 2)
	})
}

func TestCreateSequential(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)

	locker := lock.NewMemoryLocker()
	producer := &recordingProducer{}
	svc := New(testConfig{t.TempDir()}, db, locker, policy.NewBackupPolicy(db, 0), producer)

	first, err := svc.Create(ctx, user)
	require.NoError(t, err)
	assert.False(locker.IsLocked(LockKey(user.ID)))

	second, err := svc.Create(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(first.Backup.ID, second.Backup.ID)
	assert.Len(producer.jobs, 2)

	backups, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.Len(backups, 2)
}

func TestCreateEnqueueFailure(t *testing.T) {
	assert := assert.New(t)
	db, user := setup(t)

	locker := lock.NewMemoryLocker()
	failure := errors.New("redis down")
	svc := New(testConfig{t.TempDir()}, db, locker, allowAll{}, &recordingProducer{err: failure})

	_, err := svc.Create(context.Background(), user)
	assert.ErrorIs(err, failure)
	assert.False(locker.IsLocked(LockKey(user.ID)))
}

func TestPerform(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)
	dataDir := t.TempDir()

	producer := &recordingProducer{}
	svc := New(testConfig{dataDir}, db, lock.NewMemoryLocker(), allowAll{}, producer)

	handle, err := svc.Create(ctx, user)
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(ctx, producer.jobs[0]))

	backup, err := db.FetchBackup(ctx, handle.Backup.ID)
	require.NoError(t, err)
	assert.Equal(model.BackupStatusProcessed, backup.Status)
	assert.NotNil(backup.ProcessedAt)
	assert.Positive(backup.DumpFileSize)

	f, err := os.Open(filepath.Join(dataDir, backup.DumpFile))
	require.NoError(t, err)
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	names := []string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		if header.Name == "user.json" {
			assert.Contains(string(data), "alice@example.com")
			assert.NotContains(string(data), "password")
		}
	}
	assert.Equal([]string{"account.json", "user.json"}, names)

	t.Run("processed backups are skipped", func(t *testing.T) {
		assert.NoError(svc.Perform(ctx, handle.Backup.ID))
	})

	t.Run("unknown backup", func(t *testing.T) {
		assert.ErrorIs(svc.Perform(ctx, model.NewBackupID()), model.ErrorBackupNotFound)
	})
}

func TestPerformFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)

	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o600))

	producer := &recordingProducer{}
	svc := New(testConfig{notADir}, db, lock.NewMemoryLocker(), allowAll{}, producer)

	handle, err := svc.Create(ctx, user)
	require.NoError(t, err)
	assert.Error(svc.Perform(ctx, handle.Backup.ID))

	backup, err := db.FetchBackup(ctx, handle.Backup.ID)
	require.NoError(t, err)
	assert.Equal(model.BackupStatusFailed, backup.Status)
	assert.NotEmpty(backup.ErrorMessage)
}

func TestCleanup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db, user := setup(t)
	dataDir := t.TempDir()

	producer := &recordingProducer{}
	svc := New(testConfig{dataDir}, db, lock.NewMemoryLocker(), allowAll{}, producer)

	now := time.Now().UTC()
	svc.now = func() time.Time { return now.Add(-8 * 24 * time.Hour) }
	old, err := svc.Create(ctx, user)
	require.NoError(t, err)
	require.NoError(t, svc.Perform(ctx, old.Backup.ID))

	svc.now = func() time.Time { return now }
	fresh, err := svc.Create(ctx, user)
	require.NoError(t, err)

	oldBackup, err := db.FetchBackup(ctx, old.Backup.ID)
	require.NoError(t, err)
	archive := filepath.Join(dataDir, oldBackup.DumpFile)
	assert.FileExists(archive)

	removed, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(1, removed)
	assert.NoFileExists(archive)

	_, err = db.FetchBackup(ctx, old.Backup.ID)
	assert.ErrorIs(err, model.ErrorBackupNotFound)
	_, err = db.FetchBackup(ctx, fresh.Backup.ID)
	assert.NoError(err)
}

func TestScheduleCleanup(t *testing.T) {
	assert := assert.New(t)
	db, _ := setup(t)
	svc := New(testConfig{t.TempDir()}, db, lock.NewMemoryLocker(), allowAll{}, &recordingProducer{})

	c := cron.New()
	_, err := svc.ScheduleCleanup(c, "@daily")
	assert.NoError(err)
	assert.Len(c.Entries(), 1)

	_, err = svc.ScheduleCleanup(c, "whenever")
	assert.Error(err)
}

// cancellingStore cancels the job context while the archive is being built.
type cancellingStore struct {
	*store.Store
	cancel context.CancelFunc
}

func (s *cancellingStore) FetchUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.cancel()
	return nil, ctx.Err()
}

func TestPerformRecordsFailureAfterCancel(t *testing.T) {
	assert := assert.New(t)
	db, user := setup(t)

	producer := &recordingProducer{}
	svc := New(testConfig{t.TempDir()}, db, lock.NewMemoryLocker(), allowAll{}, producer)
	handle, err := svc.Create(context.Background(), user)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.store = &cancellingStore{Store: db, cancel: cancel}

	assert.ErrorIs(svc.Perform(ctx, handle.Backup.ID), context.Canceled)

	backup, err := db.FetchBackup(context.Background(), handle.Backup.ID)
	require.NoError(t, err)
	assert.Equal(model.BackupStatusFailed, backup.Status)
}
