package config

import (
	"fmt"
	"os"
	"path/filepath"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Default file names under a Karaf etc directory.
const (
	UsersFileName = "users.properties"
	JaasCfgName   = "org.apache.karaf.jaas.cfg"
)

// Env is the part of the process environment that affects path defaults.
// It is captured once at startup; nothing below reads the environment.
type Env struct {
	KarafEtc     string
	KarafJaasCfg string
	WorkDir      string
}

// EnvFromOS captures KARAF_ETC, KARAF_JAAS_CFG and the working directory.
func EnvFromOS() (Env, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Env{}, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return Env{
		KarafEtc:     os.Getenv("KARAF_ETC"),
		KarafJaasCfg: os.Getenv("KARAF_JAAS_CFG"),
		WorkDir:      wd,
	}, nil
}

// ResolveUsersFile picks explicit, then $KARAF_ETC/users.properties, then
// ./etc/users.properties.
func ResolveUsersFile(explicit string, env Env) string {
	switch {
	case explicit != "":
		return absolute(explicit, env)
	case env.KarafEtc != "":
		return absolute(filepath.Join(env.KarafEtc, UsersFileName), env)
	}
	return absolute(filepath.Join("etc", UsersFileName), env)
}

// ResolveJaasCfg picks explicit, then $KARAF_JAAS_CFG, then
// $KARAF_ETC/org.apache.karaf.jaas.cfg, then ./etc/org.apache.karaf.jaas.cfg.
func ResolveJaasCfg(explicit string, env Env) string {
	switch {
	case explicit != "":
		return absolute(explicit, env)
	case env.KarafJaasCfg != "":
		return absolute(env.KarafJaasCfg, env)
	case env.KarafEtc != "":
		return absolute(filepath.Join(env.KarafEtc, JaasCfgName), env)
	}
	return absolute(filepath.Join("etc", JaasCfgName), env)
}

func absolute(p string, env Env) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(env.WorkDir, p)
	}
	return filepath.Clean(p)
}

// AssertExists fails with a ConfigError naming the logical file when path
// does not exist.
func AssertExists(path, logicalName string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return kuerrors.ConfigError{
				Field:      logicalName,
				Value:      path,
				Message:    fmt.Sprintf("%s not found", logicalName),
				Suggestion: "Pass the path explicitly or set KARAF_ETC",
			}
		}
		return kuerrors.IOError{Op: "stat", Path: path, Err: err}
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/karaf-users/config.yaml (or the
// platform equivalent). Empty when no config directory can be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "karaf-users", "config.yaml")
}
