package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/openmined/pagesync/internal/assets"
	"github.com/openmined/pagesync/internal/config"
	"github.com/openmined/pagesync/internal/pagesapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePages is an in-memory provider holding projects and stored assets
type fakePages struct {
	t  *testing.T
	mu sync.Mutex

	projects    map[string]bool
	stored      map[string]bool
	committed   map[string]bool
	calls       map[string]int
	deployments []map[string]string
	branch      string
}

func newFakePages(t *testing.T) (*fakePages, *httptest.Server) {
	f := &fakePages{
		t:         t,
		projects:  map[string]bool{},
		stored:    map[string]bool{},
		committed: map[string]bool{},
		calls:     map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts", f.handle("accounts", func(r *http.Request) (int, any) {
		return http.StatusOK, []pagesapi.Account{{ID: "acc-1", Name: "alice@example.com's Account"}}
	}))
	mux.HandleFunc("GET /accounts/acc-1/pages/projects/{name}", f.handle("get project", func(r *http.Request) (int, any) {
		if !f.projects[r.PathValue("name")] {
			return http.StatusNotFound, nil
		}
		return http.StatusOK, pagesapi.Project{Name: r.PathValue("name"), Subdomain: r.PathValue("name") + ".pages.dev"}
	}))
	mux.HandleFunc("POST /accounts/acc-1/pages/projects", f.handle("create project", func(r *http.Request) (int, any) {
		var body struct {
			Name   string `json:"name"`
			Branch string `json:"production_branch"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.projects[body.Name] = true
		f.branch = body.Branch
		return http.StatusOK, pagesapi.Project{Name: body.Name}
	}))
	mux.HandleFunc("GET /accounts/acc-1/pages/projects/{name}/upload-token", f.handle("upload token", func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]string{"jwt": "upload-jwt"}
	}))
	mux.HandleFunc("POST /pages/assets/check-missing", f.handle("check missing", func(r *http.Request) (int, any) {
		var body struct{ Hashes []string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		missing := []string{}
		for _, h := range body.Hashes {
			if !f.stored[h] {
				missing = append(missing, h)
			}
		}
		return http.StatusOK, missing
	}))
	mux.HandleFunc("POST /pages/assets/upload", f.handle("upload", func(r *http.Request) (int, any) {
		var batch []assets.UploadPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		for _, p := range batch {
			f.stored[p.Key] = true
		}
		return http.StatusOK, nil
	}))
	mux.HandleFunc("POST /pages/assets/upsert-hashes", f.handle("upsert hashes", func(r *http.Request) (int, any) {
		var body struct{ Hashes []string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, h := range body.Hashes {
			f.committed[h] = true
		}
		return http.StatusOK, true
	}))
	mux.HandleFunc("POST /accounts/acc-1/pages/projects/{name}/deployments", f.handle("deployment", func(r *http.Request) (int, any) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		var manifest map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("manifest")), &manifest))
		f.deployments = append(f.deployments, manifest)
		return http.StatusOK, pagesapi.Deployment{
			ID:          "dep-1",
			ProjectName: r.PathValue("name"),
			URL:         "https://dep-1." + r.PathValue("name") + ".pages.dev",
		}
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePages) handle(name string, fn func(r *http.Request) (int, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[name]++
		status, result := fn(r)
		f.mu.Unlock()

		errs := []pagesapi.Message{}
		if status >= 400 {
			errs = append(errs, pagesapi.Message{Code: pagesapi.CodeProjectNotFound, Message: "Project not found."})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"success":  status < 400,
			"errors":   errs,
			"messages": []any{},
			"result":   result,
		})
	}
}

func (f *fakePages) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":          "<h1>hello</h1>",
		"css/site.css":        "body{}",
		"_worker.js":          "export default {}",
		"node_modules/x/a.js": "ignored",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func testConfig(t *testing.T, baseURL, dir string) *config.Config {
	return &config.Config{
		Dir:         dir,
		Email:       "alice@example.com",
		APIKey:      "key",
		ProjectName: "my-site",
		Branch:      "production",
		APIBaseURL:  baseURL,
	}
}

func TestRun_CreatesProjectAndDeploys(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, writeSite(t))
	cfg.ManifestOut = filepath.Join(t.TempDir(), "manifest.json")

	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, d.RunID(), res.RunID)
	assert.Equal(t, "acc-1", res.AccountID)
	assert.True(t, res.ProjectCreated)
	assert.Equal(t, "production", fake.branch)
	assert.Equal(t, "https://my-site.pages.dev", res.ProductionURL)
	assert.Equal(t, "https://dep-1.my-site.pages.dev", res.Deployment.URL)

	assert.Equal(t, 2, res.Sync.Uploaded)
	assert.Len(t, res.Sync.Manifest, 2)
	assert.Contains(t, res.Sync.Manifest, "/index.html")
	assert.Contains(t, res.Sync.Manifest, "/css/site.css")

	require.Len(t, fake.deployments, 1)
	assert.Equal(t, map[string]string(res.Sync.Manifest), fake.deployments[0])
	for _, hash := range res.Sync.Manifest {
		assert.True(t, fake.stored[hash])
		assert.True(t, fake.committed[hash])
	}

	assert.Equal(t, cfg.ManifestOut, res.ManifestLocation)
	data, err := os.ReadFile(cfg.ManifestOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), res.RunID)
	assert.Contains(t, string(data), `"deployment_id": "dep-1"`)
}

func TestRun_SecondDeployUploadsNothing(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, writeSite(t))

	d, err := New(cfg)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.ProjectCreated)
	assert.Equal(t, 2, res.Sync.Cached)
	assert.Zero(t, res.Sync.Uploaded)
	assert.Equal(t, 1, fake.count("create project"))
	assert.Equal(t, 1, fake.count("upsert hashes"))
	assert.Equal(t, 2, fake.count("deployment"))
}

func TestRun_ConfiguredAccountSkipsLookup(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, writeSite(t))
	cfg.AccountID = "acc-1"

	d, err := New(cfg)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, fake.count("accounts"))
}

func TestRun_DryRunLeavesRemoteUntouched(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, writeSite(t))
	cfg.DryRun = true

	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, res.Project)
	assert.Nil(t, res.Deployment)
	assert.True(t, res.Sync.DryRun)
	assert.Equal(t, 2, res.Sync.Uploaded)
	assert.Zero(t, fake.count("create project"))
	assert.Zero(t, fake.count("upload token"))
	assert.Zero(t, fake.count("upload"))
	assert.Zero(t, fake.count("deployment"))
}

func TestRun_APITokenNeedsAccount(t *testing.T) {
	_, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, writeSite(t))
	cfg.Email, cfg.APIKey, cfg.APIToken = "", "", "scoped"

	d, err := New(cfg)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, pagesapi.ErrNoAccountID)
}

func TestRun_LocalErrorStopsBeforeUpload(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, filepath.Join(t.TempDir(), "missing"))

	d, err := New(cfg)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	var fsErr *assets.FilesystemError
	assert.ErrorAs(t, err, &fsErr)
	assert.Zero(t, fake.count("get project"))
	assert.Zero(t, fake.count("upload token"))
	assert.Zero(t, fake.count("deployment"))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&config.Config{Dir: "dist"})
	assert.ErrorIs(t, err, config.ErrNoProjectName)
}

func TestRun_OversizedAssetStopsBeforeNetwork(t *testing.T) {
	fake, srv := newFakePages(t)
	dir := writeSite(t)
	huge, err := os.Create(filepath.Join(dir, "huge.bin"))
	require.NoError(t, err)
	require.NoError(t, huge.Truncate(assets.MaxAssetSize+1))
	require.NoError(t, huge.Close())

	d, err := New(testConfig(t, srv.URL, dir))
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, assets.ErrAssetTooLarge)
	assert.Zero(t, fake.count("accounts"))
	assert.Zero(t, fake.count("get project"))
	assert.Zero(t, fake.count("create project"))
	assert.Zero(t, fake.count("upload token"))
	assert.False(t, fake.projects["my-site"])
}

func TestRun_EmptyDirectoryDoesNotDeploy(t *testing.T) {
	fake, srv := newFakePages(t)
	dir := t.TempDir()
	// only excluded entries
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_worker.js"), []byte("export default {}"), 0o644))

	d, err := New(testConfig(t, srv.URL, dir))
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrNothingToDeploy)
	assert.Zero(t, fake.count("accounts"))
	assert.Zero(t, fake.count("create project"))
	assert.Zero(t, fake.count("deployment"))
}

func TestRun_EmptyDirectoryDryRun(t *testing.T) {
	fake, srv := newFakePages(t)
	cfg := testConfig(t, srv.URL, t.TempDir())
	cfg.DryRun = true

	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Sync.Manifest)
	assert.Nil(t, res.Deployment)
	assert.Zero(t, fake.count("check missing"))
	assert.Zero(t, fake.count("deployment"))
}
