package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/pagesync/internal/assets"
	"github.com/openmined/pagesync/internal/config"
	"github.com/openmined/pagesync/internal/export"
	"github.com/openmined/pagesync/internal/pagesapi"
	"github.com/openmined/pagesync/internal/utils"
)

var (
	ErrDryRunOracle    = errors.New("deploy: dry run does not upload")
	ErrNothingToDeploy = errors.New("deploy: nothing to deploy")
)

// Result summarises a deploy run
type Result struct {
	RunID            string
	AccountID        string
	Project          *pagesapi.Project
	ProjectCreated   bool
	Sync             *assets.SyncResult
	Deployment       *pagesapi.Deployment
	ProductionURL    string
	ManifestLocation string
}

// Deployer publishes a local directory as a deployment of a pages project
type Deployer struct {
	cfg      *config.Config
	api      *pagesapi.Client
	progress assets.Progress
	runID    string
	now      func() time.Time
}

type Option func(*Deployer)

func WithProgress(progress assets.Progress) Option {
	return func(d *Deployer) { d.progress = progress }
}

func New(cfg *config.Config, opts ...Option) (*Deployer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api, err := pagesapi.New(cfg.APIConfig())
	if err != nil {
		return nil, err
	}

	d := &Deployer{
		cfg:   cfg,
		api:   api,
		runID: uuid.NewString(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if cfg.APIToken != "" {
		slog.Debug("deploy", "run", d.runID, "op", "auth", "mode", "api token", "token", utils.MaskSecret(cfg.APIToken))
	} else {
		slog.Debug("deploy", "run", d.runID, "op", "auth", "mode", "api key", "email", cfg.Email, "key", utils.MaskSecret(cfg.APIKey))
	}
	return d, nil
}

func (d *Deployer) RunID() string {
	return d.runID
}

// Run hashes the directory, resolves the account, makes sure the project
// exists, syncs the assets and creates the deployment. Local failures stop
// the run before the first remote call. A dry run stops after the diff and
// leaves the remote untouched.
func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	log := slog.With("run", d.runID)
	result := &Result{RunID: d.runID}

	dir, err := utils.ResolvePath(d.cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !utils.DirExists(dir) {
		return nil, &assets.FilesystemError{Op: "stat", Path: dir, Err: assets.ErrNotDirectory}
	}

	opts := d.cfg.SyncOptions()
	if d.progress != nil {
		opts = append(opts, assets.WithProgress(d.progress))
	}

	// Prepare never calls the oracle, which is only known once the project is
	snap, err := assets.NewSyncer(nil, opts...).Prepare(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("prepare assets: %w", err)
	}
	if snap.Empty() && !d.cfg.DryRun {
		return nil, fmt.Errorf("%w: no eligible files under %s", ErrNothingToDeploy, dir)
	}

	accountID, err := d.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	result.AccountID = accountID
	log.Info("deploy", "op", "account", "id", accountID)

	project, created, err := d.ensureProject(ctx, accountID)
	if err != nil {
		return nil, err
	}
	result.Project = project
	result.ProjectCreated = created

	var oracle assets.Oracle = d.api.Assets(accountID, d.cfg.ProjectName)
	if project == nil {
		// dry run against a project that does not exist yet
		oracle = dryRunOracle{}
	}

	syncResult, err := assets.NewSyncer(oracle, opts...).Push(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("sync assets: %w", err)
	}
	result.Sync = syncResult
	log.Info("deploy", "op", "sync", "cached", syncResult.Cached, "uploaded", syncResult.Uploaded, "buckets", syncResult.Buckets, "dryRun", syncResult.DryRun)

	if !d.cfg.DryRun {
		deployment, err := d.api.Deployments.Create(ctx, accountID, d.cfg.ProjectName, &pagesapi.NewDeployment{
			Manifest:      syncResult.Manifest,
			Branch:        d.cfg.BranchOrDefault(),
			CommitMessage: d.cfg.CommitMessage,
			CommitHash:    d.cfg.CommitHash,
		})
		if err != nil {
			return nil, err
		}
		result.Deployment = deployment
		result.ProductionURL = productionURL(project, d.cfg.ProjectName)
		log.Info("deploy", "op", "deployment", "id", deployment.ID, "url", deployment.URL)
	}

	if d.cfg.ManifestOut != "" {
		location, err := d.exportManifest(ctx, result)
		if err != nil {
			return nil, err
		}
		result.ManifestLocation = location
	}

	return result, nil
}

// resolveAccount prefers the configured account id and falls back to the
// account named after the email.
func (d *Deployer) resolveAccount(ctx context.Context) (string, error) {
	if d.cfg.AccountID != "" {
		return d.cfg.AccountID, nil
	}
	if d.cfg.Email == "" {
		return "", fmt.Errorf("%w: set CF_ACCOUNT when using an api token", pagesapi.ErrNoAccountID)
	}

	account, err := d.api.Accounts.FindByEmail(ctx, d.cfg.Email)
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

// ensureProject returns the project, creating it when missing. In a dry
// run a missing project is reported as nil and nothing is created.
func (d *Deployer) ensureProject(ctx context.Context, accountID string) (*pagesapi.Project, bool, error) {
	project, err := d.api.Projects.Get(ctx, accountID, d.cfg.ProjectName)
	if err == nil {
		return project, false, nil
	}
	if !pagesapi.IsNotFound(err) {
		return nil, false, err
	}

	if d.cfg.DryRun {
		slog.Warn("deploy", "run", d.runID, "op", "project", "status", "SKIPPED", "reason", "dry run", "project", d.cfg.ProjectName)
		return nil, false, nil
	}

	slog.Info("deploy", "run", d.runID, "op", "project", "status", "creating", "project", d.cfg.ProjectName)
	project, err = d.api.Projects.Create(ctx, accountID, d.cfg.ProjectName, d.cfg.BranchOrDefault())
	if err != nil {
		return nil, false, err
	}
	return project, true, nil
}

func (d *Deployer) exportManifest(ctx context.Context, result *Result) (string, error) {
	writer, err := export.New(ctx, d.cfg.ManifestOut, &d.cfg.S3)
	if err != nil {
		return "", err
	}

	record := &export.Record{
		RunID:     d.runID,
		Project:   d.cfg.ProjectName,
		Branch:    d.cfg.BranchOrDefault(),
		DryRun:    d.cfg.DryRun,
		Cached:    result.Sync.Cached,
		Uploaded:  result.Sync.Uploaded,
		CreatedAt: d.now().UTC(),
		Manifest:  result.Sync.Manifest,
	}
	if result.Deployment != nil {
		record.DeploymentID = result.Deployment.ID
		record.DeploymentURL = result.Deployment.URL
	}

	return writer.Write(ctx, record)
}

func productionURL(project *pagesapi.Project, name string) string {
	if project != nil && project.Subdomain != "" {
		return "https://" + project.Subdomain
	}
	return fmt.Sprintf("https://%s.pages.dev", name)
}

// dryRunOracle stands in for a project that does not exist yet: the
// remote holds nothing, so every hash is missing.
type dryRunOracle struct{}

func (dryRunOracle) UploadCredential(ctx context.Context) (*assets.Credential, error) {
	return &assets.Credential{Token: "dry-run"}, nil
}

func (dryRunOracle) CheckMissing(ctx context.Context, cred *assets.Credential, hashes []string) ([]string, error) {
	return hashes, nil
}

func (dryRunOracle) UploadBatch(ctx context.Context, cred *assets.Credential, batch []*assets.UploadPayload) error {
	return ErrDryRunOracle
}

func (dryRunOracle) CommitHashes(ctx context.Context, cred *assets.Credential, hashes []string) error {
	return ErrDryRunOracle
}
