// Package usersvc runs one logical operation against the users file:
// validate the file's security, optionally back it up, load the store,
// apply the change, serialize and commit it.
package usersvc

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/systmms/karafusers/internal/codec"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/fsguard"
	"github.com/systmms/karafusers/internal/jaas"
	"github.com/systmms/karafusers/internal/logging"
	"github.com/systmms/karafusers/internal/secure"
	"github.com/systmms/karafusers/internal/txwrite"
	"github.com/systmms/karafusers/internal/userstore"
)

// Guard validates the users file and re-asserts its permissions.
type Guard interface {
	Validate(path string) error
	Enforce(path string) error
}

// Writer backs up and commits the users file.
type Writer interface {
	Backup(path string) (string, error)
	Commit(target string, content []byte) error
}

// Options configures a Service. Paths must already be resolved.
type Options struct {
	UsersFile string
	JaasCfg   string
	Backup    bool
	DryRun    bool

	Logger  *logging.Logger
	Guard   Guard
	Writer  Writer
	Codecs  *codec.Registry
	Metrics *Metrics
}

// Service orchestrates operations on one users file.
type Service struct {
	usersFile string
	jaasCfg   string
	backup    bool
	dryRun    bool

	logger  *logging.Logger
	guard   Guard
	writer  Writer
	codecs  *codec.Registry
	metrics *Metrics
}

// Result describes the outcome of a mutation.
type Result struct {
	// Backup is the backup file path, empty when none was taken.
	Backup  string
	Changed bool
	DryRun  bool
	Changes []userstore.Change
}

// EditRequest mirrors userstore.Edit with a protected password.
type EditRequest struct {
	AddRoles     []string
	RemoveRoles  []string
	AddGroups    []string
	RemoveGroups []string
	Password     *secure.Password
}

// Report summarises a successful Check.
type Report struct {
	UsersFile string
	JaasCfg   string
	Provider  string
	Algorithm codec.Algorithm
	Users     int
	Groups    int
}

// New creates a Service, filling in production collaborators for any left
// nil in opts.
func New(opts Options) *Service {
	s := &Service{
		usersFile: opts.UsersFile,
		jaasCfg:   opts.JaasCfg,
		backup:    opts.Backup,
		dryRun:    opts.DryRun,
		logger:    opts.Logger,
		guard:     opts.Guard,
		writer:    opts.Writer,
		codecs:    opts.Codecs,
		metrics:   opts.Metrics,
	}
	if s.guard == nil {
		s.guard = fsguard.New()
	}
	if s.writer == nil {
		s.writer = txwrite.New(s.guard, txwrite.WithLogger(s.logger))
	}
	if s.codecs == nil {
		s.codecs = codec.NewRegistry()
	}
	return s
}

// AddUser creates a user with roles and group memberships.
func (s *Service) AddUser(ctx context.Context, name string, password *secure.Password, roles, groups []string) (Result, error) {
	return s.mutate(ctx, "add", true, func(st *userstore.Store, c codec.Codec) (*userstore.Store, error) {
		var next *userstore.Store
		err := password.Use(func(plain []byte) error {
			var err error
			next, err = st.AddUser(name, plain, roles, groups, c)
			return err
		})
		return next, err
	})
}

// DeleteUser removes a user. Group references elsewhere are not touched.
func (s *Service) DeleteUser(ctx context.Context, name string) (Result, error) {
	return s.mutate(ctx, "delete", false, func(st *userstore.Store, _ codec.Codec) (*userstore.Store, error) {
		return st.DeleteUser(name)
	})
}

// EditUser changes a user's roles, groups and optionally password.
func (s *Service) EditUser(ctx context.Context, name string, req EditRequest) (Result, error) {
	edit := userstore.Edit{
		AddRoles:     req.AddRoles,
		RemoveRoles:  req.RemoveRoles,
		AddGroups:    req.AddGroups,
		RemoveGroups: req.RemoveGroups,
	}
	return s.mutate(ctx, "edit", req.Password != nil, func(st *userstore.Store, c codec.Codec) (*userstore.Store, error) {
		if req.Password == nil {
			return st.EditUser(name, edit, c)
		}
		var next *userstore.Store
		err := req.Password.Use(func(plain []byte) error {
			e := edit
			e.Password = plain
			if e.Password == nil {
				e.Password = []byte{}
			}
			var err error
			next, err = st.EditUser(name, e, c)
			return err
		})
		return next, err
	})
}

// ListUsers returns the users of the file. The sequence is backed by a
// snapshot taken at call time.
func (s *Service) ListUsers(ctx context.Context, resolveGroups bool) (seq iter.Seq[userstore.Entry], err error) {
	start := time.Now()
	defer func() { s.metrics.observe("list", start, err) }()

	st, err := s.readStore(ctx)
	if err != nil {
		return nil, err
	}
	return st.Users(resolveGroups), nil
}

// ListGroups returns the groups of the file.
func (s *Service) ListGroups(ctx context.Context) (seq iter.Seq[userstore.Entry], err error) {
	start := time.Now()
	defer func() { s.metrics.observe("list_groups", start, err) }()

	st, err := s.readStore(ctx)
	if err != nil {
		return nil, err
	}
	return st.Groups(), nil
}

// VerifyPassword reports whether password matches name's stored credential.
func (s *Service) VerifyPassword(ctx context.Context, name string, password *secure.Password) (ok bool, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("verify", start, err) }()

	st, err := s.readStore(ctx)
	if err != nil {
		return false, err
	}
	c, err := s.buildCodec()
	if err != nil {
		return false, err
	}
	err = password.Use(func(plain []byte) error {
		var verr error
		ok, verr = st.VerifyUser(name, plain, c)
		return verr
	})
	return ok, err
}

// Check validates the users file and the encryption configuration without
// changing anything.
func (s *Service) Check(ctx context.Context) (report Report, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("check", start, err) }()

	st, err := s.readStore(ctx)
	if err != nil {
		return Report{}, err
	}
	cfg, err := jaas.Load(s.jaasCfg)
	if err != nil {
		return Report{}, err
	}
	s.logSettings(cfg)
	c, err := s.codecs.Build(cfg)
	if err != nil {
		return Report{}, err
	}
	provider, _ := cfg.ProviderName()
	if c.Algorithm() == codec.Argon2 {
		s.logger.Warn("argon2 hashes contain ',' and cannot be stored in users.properties; choose bcrypt, pbkdf2 or scrypt")
	}

	users, groups := st.Counts()
	return Report{
		UsersFile: s.usersFile,
		JaasCfg:   s.jaasCfg,
		Provider:  provider,
		Algorithm: c.Algorithm(),
		Users:     users,
		Groups:    groups,
	}, nil
}

type mutation func(st *userstore.Store, c codec.Codec) (*userstore.Store, error)

// mutate runs ValidateSecurity, Backup, Load, Mutate, Serialize, Commit.
// Nothing is written unless every step before Commit succeeds.
func (s *Service) mutate(ctx context.Context, op string, needCodec bool, fn mutation) (res Result, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(op, start, err) }()

	if err := ctx.Err(); err != nil {
		return res, err
	}

	s.logger.Debug("Validating security of %s", s.usersFile)
	if err := s.guard.Validate(s.usersFile); err != nil {
		return res, err
	}

	if s.backup && !s.dryRun {
		backup, err := s.writer.Backup(s.usersFile)
		if err != nil {
			return res, fmt.Errorf("backup before %s: %w", op, err)
		}
		res.Backup = backup
		s.logger.Detail("Backup created: %s", backup)
	}

	var c codec.Codec
	if needCodec {
		if c, err = s.buildCodec(); err != nil {
			return res, err
		}
	}

	before, err := s.loadStore()
	if err != nil {
		return res, err
	}

	after, err := fn(before, c)
	if err != nil {
		return res, err
	}
	res.Changes = userstore.Diff(before, after)
	res.Changed = len(res.Changes) > 0

	content := after.Serialize()
	if s.dryRun {
		res.DryRun = true
		s.logger.Debug("Dry run: %d bytes not written to %s", len(content), s.usersFile)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := s.writer.Commit(s.usersFile, content); err != nil {
		return res, err
	}
	s.metrics.setPrincipals(after.Counts())
	return res, nil
}

func (s *Service) buildCodec() (codec.Codec, error) {
	s.logger.Debug("Loading encryption settings from %s", s.jaasCfg)
	cfg, err := jaas.Load(s.jaasCfg)
	if err != nil {
		return nil, err
	}
	s.logSettings(cfg)
	c, err := s.codecs.Build(cfg)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Using %s password encoding", c.Algorithm())
	return c, nil
}

// logSettings dumps the encryption.* keys at debug level, redacting
// secret material.
func (s *Service) logSettings(cfg *jaas.Config) {
	if !s.logger.DebugEnabled() {
		return
	}
	s.logger.Debug("Encryption settings from %s:", cfg.Path())
	for _, k := range cfg.Keys() {
		if !strings.HasPrefix(k, "encryption.") {
			continue
		}
		v, _ := cfg.String(k)
		if jaas.Sensitive(k) {
			s.logger.Debug("  %s = %s", k, logging.Secret(v))
			continue
		}
		s.logger.Debug("  %s = %s", k, v)
	}
}

func (s *Service) readStore(ctx context.Context) (*userstore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.guard.Validate(s.usersFile); err != nil {
		return nil, err
	}
	st, err := s.loadStore()
	if err != nil {
		return nil, err
	}
	s.metrics.setPrincipals(st.Counts())
	return st, nil
}

func (s *Service) loadStore() (*userstore.Store, error) {
	data, err := os.ReadFile(s.usersFile)
	if err != nil {
		return nil, kuerrors.IOError{Op: "read", Path: s.usersFile, Err: err}
	}
	return userstore.Parse(data)
}
