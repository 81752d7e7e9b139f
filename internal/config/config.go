package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/openmined/pagesync/internal/assets"
	"github.com/openmined/pagesync/internal/export"
	"github.com/openmined/pagesync/internal/pagesapi"
	"github.com/openmined/pagesync/internal/utils"
)

const (
	DefaultEnvFile = ".env"
	DefaultBranch  = "main"
)

var (
	ErrNoDirectory        = errors.New("config: output directory missing")
	ErrNoProjectName      = errors.New("config: project name missing")
	ErrInvalidProjectName = errors.New("config: project name must be lowercase letters, digits and dashes")
	ErrNoCredentials      = errors.New("config: CF_API_TOKEN or CF_EMAIL and CF_TOKEN required")
	ErrInvalidTuning      = errors.New("config: concurrency, attempts and timeout cannot be negative")
	ErrEnvFileNotFound    = errors.New("config: env file not found")
)

var projectNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,57}$`)

// Config is everything one deploy run needs
type Config struct {
	Dir         string // Dir is the directory to deploy
	Email       string // Email is the account email, used with APIKey
	APIKey      string // APIKey is the global api key
	APIToken    string // APIToken is a scoped api token
	AccountID   string // AccountID skips the account lookup when set
	ProjectName string
	Branch      string
	APIBaseURL  string

	CommitMessage string
	CommitHash    string
	DryRun        bool
	ManifestOut   string // ManifestOut is a file path or s3://bucket/key
	S3            export.S3Config

	Concurrency int           // Concurrency is the number of upload workers
	MaxAttempts int           // MaxAttempts per bucket upload
	Timeout     time.Duration // Timeout bounds each remote call
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return ErrNoDirectory
	}

	if c.ProjectName == "" {
		return ErrNoProjectName
	}
	if !projectNameRe.MatchString(c.ProjectName) {
		return fmt.Errorf("%w: %q", ErrInvalidProjectName, c.ProjectName)
	}

	if c.APIToken == "" && (c.Email == "" || c.APIKey == "") {
		return ErrNoCredentials
	}
	if c.Email != "" {
		if err := utils.ValidateEmail(c.Email); err != nil {
			return err
		}
	}

	if c.Concurrency < 0 || c.MaxAttempts < 0 || c.Timeout < 0 {
		return ErrInvalidTuning
	}

	return nil
}

// BranchOrDefault returns the branch to deploy
func (c *Config) BranchOrDefault() string {
	if c.Branch == "" {
		return DefaultBranch
	}
	return c.Branch
}

// APIConfig returns the api client configuration
func (c *Config) APIConfig() *pagesapi.Config {
	return &pagesapi.Config{
		BaseURL:  c.APIBaseURL,
		Email:    c.Email,
		APIKey:   c.APIKey,
		APIToken: c.APIToken,
		Timeout:  c.Timeout,
	}
}

// SyncOptions turns the tunables into asset syncer options. Zero values
// keep the syncer defaults.
func (c *Config) SyncOptions() []assets.Option {
	opts := []assets.Option{assets.WithDryRun(c.DryRun)}

	if c.Concurrency > 0 {
		limits := assets.DefaultLimits()
		limits.Concurrency = c.Concurrency
		opts = append(opts, assets.WithLimits(limits))
	}
	if c.MaxAttempts > 0 {
		retry := assets.DefaultRetryPolicy()
		retry.MaxAttempts = c.MaxAttempts
		opts = append(opts, assets.WithRetryPolicy(retry))
	}
	if c.Timeout > 0 {
		opts = append(opts, assets.WithCallTimeout(c.Timeout))
	}

	return opts
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is only an error when the path was asked for explicitly.
func LoadEnvFile(path string, explicit bool) error {
	if !utils.FileExists(path) {
		if explicit {
			return fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
		}
		slog.Debug("config", "op", "load env", "status", "SKIPPED", "path", path)
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	slog.Debug("config", "op", "load env", "path", path)
	return nil
}
