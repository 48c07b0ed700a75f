//go:build unix

package usersvc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/fsguard"
	"github.com/systmms/karafusers/internal/logging"
	"github.com/systmms/karafusers/internal/secure"
	"github.com/systmms/karafusers/internal/txwrite"
	"github.com/systmms/karafusers/internal/userstore"
)

const initialUsers = "alice=abc123,admin\n_g_:ops=deploy,monitor\nbob=xyz789,_g_:ops\n"

const bcryptCfg = `# test settings
encryption.enabled = true
encryption.name = spring-security-crypto
encryption.algorithm = bcrypt
encryption.bcrypt.strength = 4
encryption.prefix = {CRYPT}
encryption.suffix = {CRYPT}
`

type fixture struct {
	dir     string
	users   string
	jaas    string
	logs    *bytes.Buffer
	metrics *Metrics
}

func newFixture(t *testing.T, cfg string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		users:   filepath.Join(dir, "users.properties"),
		jaas:    filepath.Join(dir, "org.apache.karaf.jaas.cfg"),
		logs:    &bytes.Buffer{},
		metrics: NewMetrics(),
	}
	require.NoError(t, os.WriteFile(f.users, []byte(initialUsers), 0o600))
	require.NoError(t, os.WriteFile(f.jaas, []byte(cfg), 0o644))
	return f
}

func (f *fixture) service(opts Options) *Service {
	opts.UsersFile = f.users
	opts.JaasCfg = f.jaas
	opts.Logger = logging.New(true, true).WithOutput(f.logs)
	opts.Metrics = f.metrics
	return New(opts)
}

func (f *fixture) content(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.users)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) backups(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(f.users + ".bak-*")
	require.NoError(t, err)
	return matches
}

func TestAddUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	svc := f.service(Options{Backup: true})

	res, err := svc.AddUser(context.Background(), "carol", secure.PasswordFromString("s3cret"), []string{"viewer"}, []string{"ops"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.DryRun)
	assert.Equal(t, []userstore.Change{{Op: userstore.Added, Key: "carol", Kind: userstore.User}}, res.Changes)

	require.NotEmpty(t, res.Backup)
	backup, err := os.ReadFile(res.Backup)
	require.NoError(t, err)
	assert.Equal(t, initialUsers, string(backup))
	assert.NoError(t, fsguard.New().Validate(res.Backup))

	content := f.content(t)
	assert.True(t, strings.HasPrefix(content, initialUsers))
	assert.Regexp(t, `carol=\{CRYPT\}\$2a\$04\$.{53}\{CRYPT\},viewer,_g_:ops\n$`, content)
	assert.NoError(t, fsguard.New().Validate(f.users))

	ok, err := svc.VerifyPassword(context.Background(), "carol", secure.PasswordFromString("s3cret"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyPassword(context.Background(), "carol", secure.PasswordFromString("wrong"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("add", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("verify", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.principals.WithLabelValues("user")))
	assert.Contains(t, f.logs.String(), "Backup created: "+res.Backup)
}

func TestEncryptionDisabledLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "encryption.enabled=false\nencryption.name=spring-security-crypto\nencryption.algorithm=bcrypt\n")
	svc := f.service(Options{})

	_, err := svc.AddUser(context.Background(), "carol", secure.PasswordFromString("pw"), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, kuerrors.ErrEncryptionDisabled)
	assert.Equal(t, kuerrors.ExitConfig, kuerrors.ExitCode(err))
	assert.Equal(t, initialUsers, f.content(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("add", "config_error")))
}

func TestInsecureFileIsRefusedBeforeBackup(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	require.NoError(t, os.Chmod(f.users, 0o644))
	svc := f.service(Options{Backup: true})

	_, err := svc.DeleteUser(context.Background(), "alice")
	assert.ErrorIs(t, err, kuerrors.ErrInsecurePermissions)
	assert.Empty(t, f.backups(t))
	assert.Equal(t, initialUsers, f.content(t))

	_, err = svc.ListUsers(context.Background(), true)
	assert.ErrorIs(t, err, kuerrors.ErrInsecurePermissions)
}

type failingWriter struct {
	backupErr error
	commitErr error
	committed bool
}

func (w *failingWriter) Backup(string) (string, error) {
	return "", w.backupErr
}

func (w *failingWriter) Commit(string, []byte) error {
	w.committed = true
	return w.commitErr
}

func TestBackupFailureAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	writer := &failingWriter{backupErr: kuerrors.IOError{Op: "backup: create", Err: os.ErrPermission}}
	svc := f.service(Options{Backup: true, Writer: writer})

	_, err := svc.DeleteUser(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, kuerrors.ExitIO, kuerrors.ExitCode(err))
	assert.Contains(t, err.Error(), "backup before delete")
	assert.False(t, writer.committed)
	assert.Equal(t, initialUsers, f.content(t))
}

func TestCommitFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	crash := errors.New("disk gone")
	writer := txwrite.New(fsguard.New(), txwrite.WithRename(func(string, string) error { return crash }))
	svc := f.service(Options{Writer: writer})

	_, err := svc.DeleteUser(context.Background(), "alice")
	assert.ErrorIs(t, err, crash)
	assert.Equal(t, initialUsers, f.content(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("delete", "io_error")))
}

func TestDeleteUserDoesNotNeedEncryptionConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	require.NoError(t, os.Remove(f.jaas))
	svc := f.service(Options{})

	res, err := svc.DeleteUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, res.Backup)
	assert.Equal(t, "_g_:ops=deploy,monitor\nbob=xyz789,_g_:ops\n", f.content(t))
}

func TestDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	svc := f.service(Options{Backup: true, DryRun: true})

	res, err := svc.EditUser(context.Background(), "alice", EditRequest{AddRoles: []string{"viewer"}})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Backup)
	assert.Equal(t, []userstore.Change{{Op: userstore.Modified, Key: "alice", Kind: userstore.User}}, res.Changes)

	assert.Equal(t, initialUsers, f.content(t))
	assert.Empty(t, f.backups(t))
}

func TestEditUserPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	svc := f.service(Options{})

	res, err := svc.EditUser(context.Background(), "alice", EditRequest{
		RemoveRoles: []string{"admin"},
		AddGroups:   []string{"ops"},
		Password:    secure.PasswordFromString("rotated"),
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].CredentialChanged)

	ok, err := svc.VerifyPassword(context.Background(), "alice", secure.PasswordFromString("rotated"))
	require.NoError(t, err)
	assert.True(t, ok)

	seq, err := svc.ListUsers(context.Background(), true)
	require.NoError(t, err)
	for e := range seq {
		if e.Name == "alice" {
			assert.Equal(t, []string{"deploy", "monitor"}, e.Roles)
		}
	}
}

func TestEditUserEmptyPasswordRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	_, err := f.service(Options{}).EditUser(context.Background(), "alice", EditRequest{Password: secure.PasswordFromString("")})
	assert.ErrorIs(t, err, kuerrors.ErrInvalidInput)
	assert.Equal(t, initialUsers, f.content(t))
}

func TestValidationErrorsLeaveStoreUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	svc := f.service(Options{})
	ctx := context.Background()

	_, err := svc.AddUser(ctx, "alice", secure.PasswordFromString("pw"), nil, nil)
	assert.ErrorIs(t, err, kuerrors.ErrAlreadyExists)

	_, err = svc.AddUser(ctx, "carol", secure.PasswordFromString("pw"), nil, []string{"devs"})
	assert.ErrorIs(t, err, kuerrors.ErrUnknownGroup)

	_, err = svc.DeleteUser(ctx, "_g_:ops")
	assert.ErrorIs(t, err, kuerrors.ErrIsGroup)

	_, err = svc.EditUser(ctx, "alice", EditRequest{})
	assert.ErrorIs(t, err, kuerrors.ErrNoOpRequested)

	assert.Equal(t, initialUsers, f.content(t))
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	svc := f.service(Options{})

	seq, err := svc.ListUsers(context.Background(), true)
	require.NoError(t, err)

	var names []string
	for e := range seq {
		names = append(names, e.Name)
		if e.Name == "bob" {
			assert.ElementsMatch(t, []string{"deploy", "monitor"}, e.Roles)
		}
	}
	assert.Equal(t, []string{"alice", "bob"}, names)

	groups, err := svc.ListGroups(context.Background())
	require.NoError(t, err)
	for g := range groups {
		assert.Equal(t, "ops", g.Name)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	report, err := f.service(Options{}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{
		UsersFile: f.users,
		JaasCfg:   f.jaas,
		Provider:  "spring-security-crypto",
		Algorithm: "bcrypt",
		Users:     2,
		Groups:    1,
	}, report)
}

func TestCheckWarnsAboutArgon2(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "encryption.name=spring-security-crypto\nencryption.algorithm=argon2\n")
	report, err := f.service(Options{}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "argon2", string(report.Algorithm))
	assert.Contains(t, f.logs.String(), "argon2 hashes contain ','")
}

func TestEncryptionSettingsLoggedWithSecretRedacted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `encryption.name = spring-security-crypto
encryption.algorithm = pbkdf2
encryption.pbkdf2.secret = pepper-value
encryption.pbkdf2.iterations = 1000
`)
	_, err := f.service(Options{}).AddUser(context.Background(), "carol", secure.PasswordFromString("s3cret"), nil, nil)
	require.NoError(t, err)

	logs := f.logs.String()
	assert.Contains(t, logs, "Encryption settings from "+f.jaas)
	assert.Contains(t, logs, "encryption.algorithm = pbkdf2")
	assert.Contains(t, logs, "encryption.pbkdf2.secret = [REDACTED]")
	assert.NotContains(t, logs, "pepper-value")
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service(Options{}).DeleteUser(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, initialUsers, f.content(t))
}

func TestMetricsTextfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bcryptCfg)
	_, err := f.service(Options{}).DeleteUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, kuerrors.ErrNotFound)

	out := filepath.Join(t.TempDir(), "karaf_users.prom")
	require.NoError(t, f.metrics.WriteToTextfile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `karaf_users_operations_total{operation="delete",result="validation_error"} 1`)
	assert.Contains(t, string(data), "karaf_users_operation_duration_seconds")
}
