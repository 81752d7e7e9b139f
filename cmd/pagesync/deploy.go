package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/openmined/pagesync/internal/assets"
	"github.com/openmined/pagesync/internal/config"
	"github.com/openmined/pagesync/internal/deploy"
	"github.com/openmined/pagesync/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(newDeployCmd())
}

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <dir>",
		Short: "Upload a directory and create a Pages deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// config is good, usage no longer helps
			cmd.SilenceUsage = true

			out := cmd.OutOrStdout()
			verbose, _ := cmd.Flags().GetBool("verbose")
			interactive := isTerminal(out) && !verbose

			var opts []deploy.Option
			switch {
			case verbose:
				setupLogger(cmd.ErrOrStderr(), slog.LevelDebug)
			case interactive:
				setupLogger(cmd.ErrOrStderr(), slog.LevelWarn)
				opts = append(opts, deploy.WithProgress(newTeaProgress(out)))
			}

			d, err := deploy.New(cfg, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s %s %s\n", cyan.Render("deploying"), bold.Render(cfg.Dir), gray.Render("run "+d.RunID()))
			result, err := d.Run(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), red.Render("deploy failed: ")+err.Error())
				return err
			}

			printResult(out, result)
			return nil
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("env", "e", config.DefaultEnvFile, "Env file with CF_EMAIL, CF_TOKEN, CF_ACCOUNT and CF_PROJECT_NAME")
	cmd.Flags().StringP("project", "p", "", "Pages project name (CF_PROJECT_NAME)")
	cmd.Flags().StringP("branch", "b", config.DefaultBranch, "Branch to deploy (CF_BRANCH)")
	cmd.Flags().String("account", "", "Account id, skips the lookup by email (CF_ACCOUNT)")
	cmd.Flags().StringP("commit-message", "m", "", "Commit message attached to the deployment")
	cmd.Flags().String("commit-hash", "", "Commit hash attached to the deployment")
	cmd.Flags().Bool("dry-run", false, "Hash and diff only, upload and deploy nothing")
	cmd.Flags().String("manifest-out", "", "Write the manifest to a file or s3://bucket/key")
	cmd.Flags().Int("concurrency", assets.MaxBucketCount, "Parallel bucket uploads")
	cmd.Flags().Int("max-attempts", assets.DefaultRetryPolicy().MaxAttempts, "Attempts per bucket upload")
	cmd.Flags().Duration("timeout", assets.DefaultCallTimeout, "Timeout of each API call")

	return cmd
}

// loadConfig merges flags, the process environment and the env file.
// Explicit flags win over environment variables, which win over flag defaults.
func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env")); err != nil {
		return nil, err
	}

	v := viper.New()

	// Bind flags to viper
	v.BindPFlag("project_name", cmd.Flags().Lookup("project"))
	v.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	v.BindPFlag("account_id", cmd.Flags().Lookup("account"))
	v.BindPFlag("commit_message", cmd.Flags().Lookup("commit-message"))
	v.BindPFlag("commit_hash", cmd.Flags().Lookup("commit-hash"))
	v.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	v.BindPFlag("manifest_out", cmd.Flags().Lookup("manifest-out"))
	v.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))
	v.BindPFlag("max_attempts", cmd.Flags().Lookup("max-attempts"))
	v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))

	// Provider variables keep their historical names
	v.BindEnv("email", "CF_EMAIL")
	v.BindEnv("api_key", "CF_TOKEN")
	v.BindEnv("api_token", "CF_API_TOKEN")
	v.BindEnv("account_id", "CF_ACCOUNT")
	v.BindEnv("project_name", "CF_PROJECT_NAME")
	v.BindEnv("branch", "CF_BRANCH")
	v.BindEnv("api_base_url", "CF_API_BASE_URL")

	// Everything else is PAGESYNC_*
	v.SetEnvPrefix("PAGESYNC")
	v.AutomaticEnv()

	return &config.Config{
		Dir:           dir,
		Email:         v.GetString("email"),
		APIKey:        v.GetString("api_key"),
		APIToken:      v.GetString("api_token"),
		AccountID:     v.GetString("account_id"),
		ProjectName:   v.GetString("project_name"),
		Branch:        v.GetString("branch"),
		APIBaseURL:    v.GetString("api_base_url"),
		CommitMessage: v.GetString("commit_message"),
		CommitHash:    v.GetString("commit_hash"),
		DryRun:        v.GetBool("dry_run"),
		ManifestOut:   v.GetString("manifest_out"),
		Concurrency:   v.GetInt("concurrency"),
		MaxAttempts:   v.GetInt("max_attempts"),
		Timeout:       v.GetDuration("timeout"),
		S3: export.S3Config{
			Region:    v.GetString("s3_region"),
			AccessKey: v.GetString("s3_access_key"),
			SecretKey: v.GetString("s3_secret_key"),
			Endpoint:  v.GetString("s3_endpoint"),
		},
	}, nil
}

func printResult(w io.Writer, res *deploy.Result) {
	stats := res.Sync
	fmt.Fprintf(w, "%s %d cached, %d uploaded (%s in %d buckets)\n",
		green.Render("assets"),
		stats.Cached, stats.Uploaded,
		humanize.Bytes(uint64(stats.UploadedBytes)), stats.Buckets,
	)

	if res.ProjectCreated {
		fmt.Fprintf(w, "%s created project %s\n", green.Render("project"), res.Project.Name)
	}

	if stats.DryRun {
		fmt.Fprintln(w, gray.Render("dry run, nothing was uploaded or deployed"))
	} else if res.Deployment != nil {
		fmt.Fprintf(w, "%s %s\n", green.Render("production"), bold.Render(res.ProductionURL))
		fmt.Fprintf(w, "%s %s\n", green.Render("deployment"), bold.Render(res.Deployment.URL))
	}

	if res.ManifestLocation != "" {
		fmt.Fprintf(w, "%s %s\n", green.Render("manifest"), res.ManifestLocation)
	}
}
