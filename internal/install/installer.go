package install

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"webappinfo/internal/webapp"
)

const (
	recordFile = "app.yaml"
	iconsDir   = "icons"

	// stagingPrefix marks in-progress installs; app IDs never start with it.
	stagingPrefix = "."
)

// ErrNotInstalled is returned for operations on unknown app IDs.
var ErrNotInstalled = errors.New("app not installed")

// InstalledApp is an application that has been written to disk.
type InstalledApp struct {
	ID          string
	Dir         string
	Info        webapp.WebApplicationInfo
	InstalledAt time.Time
}

// Installer persists web applications under an output directory and
// tracks which ones are installed.
type Installer struct {
	outputDir      string
	templateEngine *TemplateEngine
	logger         *slog.Logger
	now            func() time.Time

	installed map[string]*InstalledApp // keyed by app ID
	mu        sync.RWMutex
}

// record is the on-disk form of an installed app. Icon bytes live in
// separate PNG files referenced by File.
type record struct {
	ID               string       `yaml:"id"`
	Title            string       `yaml:"title"`
	Description      string       `yaml:"description,omitempty"`
	AppURL           string       `yaml:"app_url"`
	IsBookmarkApp    bool         `yaml:"is_bookmark_app"`
	IsOfflineEnabled bool         `yaml:"is_offline_enabled"`
	InstalledAt      time.Time    `yaml:"installed_at"`
	Icons            []iconRecord `yaml:"icons,omitempty"`
}

type iconRecord struct {
	URL    string `yaml:"url"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	File   string `yaml:"file,omitempty"`
}

// NewInstaller creates an Installer writing below outputDir.
func NewInstaller(outputDir string, logger *slog.Logger) (*Installer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmplEngine, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create template engine: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Installer{
		outputDir:      outputDir,
		templateEngine: tmplEngine,
		logger:         logger,
		now:            time.Now,
		installed:      make(map[string]*InstalledApp),
	}, nil
}

// Install writes info to <outputDir>/<id>/ and records it as installed.
// Reinstalling an app replaces its directory. Files are written to a
// staging directory first, so a failed install leaves any previous one in
// place. The installer keeps its own copy of info.
func (in *Installer) Install(info webapp.WebApplicationInfo) (*InstalledApp, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	id := AppID(info.AppURL)
	appDir := filepath.Join(in.outputDir, id)

	staging, err := os.MkdirTemp(in.outputDir, stagingPrefix+id+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := os.Chmod(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to prepare staging directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(staging, iconsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory structure: %w", err)
	}

	app := &InstalledApp{
		ID:          id,
		Dir:         appDir,
		Info:        info.Clone(),
		InstalledAt: in.now().UTC().Truncate(time.Second),
	}

	rec, err := in.writeIcons(staging, app)
	if err != nil {
		return nil, err
	}
	if err := writeRecord(staging, rec); err != nil {
		return nil, err
	}
	if err := in.writeLaunchers(staging, app, rec); err != nil {
		return nil, err
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if err := os.RemoveAll(appDir); err != nil {
		delete(in.installed, id)
		return nil, fmt.Errorf("failed to remove existing directory: %w", err)
	}
	if err := os.Rename(staging, appDir); err != nil {
		delete(in.installed, id)
		return nil, fmt.Errorf("failed to move app into place: %w", err)
	}
	in.installed[id] = app

	in.logger.Info("Installed web application", "id", id, "title", info.Title, "dir", appDir, "icons", len(rec.Icons))
	return cloneApp(app), nil
}

// writeIcons stores every icon with data below dir and returns the record
// describing app.
func (in *Installer) writeIcons(dir string, app *InstalledApp) (*record, error) {
	rec := &record{
		ID:               app.ID,
		Title:            app.Info.Title,
		Description:      app.Info.Description,
		AppURL:           app.Info.AppURL,
		IsBookmarkApp:    app.Info.IsBookmarkApp,
		IsOfflineEnabled: app.Info.IsOfflineEnabled,
		InstalledAt:      app.InstalledAt,
	}

	for i, ic := range app.Info.Icons {
		ir := iconRecord{URL: ic.URL, Width: ic.Width, Height: ic.Height}
		if ic.HasData() {
			ir.File = filepath.ToSlash(filepath.Join(iconsDir, fmt.Sprintf("%02d-%dx%d.png", i, ic.Width, ic.Height)))
			if err := os.WriteFile(filepath.Join(dir, ir.File), ic.Data, 0644); err != nil {
				return nil, fmt.Errorf("failed to write icon %s: %w", ic.URL, err)
			}
		}
		rec.Icons = append(rec.Icons, ir)
	}
	return rec, nil
}

func writeRecord(appDir string, rec *record) error {
	out, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", recordFile, err)
	}
	if err := os.WriteFile(filepath.Join(appDir, recordFile), out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", recordFile, err)
	}
	return nil
}

// writeLaunchers renders every launcher template into dir. The launcher
// icon is the stored icon closest to 128px, referenced at its final path
// below app.Dir.
func (in *Installer) writeLaunchers(dir string, app *InstalledApp, rec *record) error {
	var iconPath string
	best := -1
	for i, ir := range rec.Icons {
		if ir.File == "" {
			continue
		}
		if best < 0 || closer(ir.Width, rec.Icons[best].Width, 128) {
			best = i
		}
	}
	if best >= 0 {
		p, err := filepath.Abs(filepath.Join(app.Dir, rec.Icons[best].File))
		if err != nil {
			return fmt.Errorf("failed to resolve icon path: %w", err)
		}
		iconPath = p
	}

	data := NewLauncherData(app.ID, app.Info, iconPath)
	for _, name := range in.templateEngine.ListTemplates() {
		target := filepath.Join(dir, launcherFile(app.ID, name))
		if err := in.templateEngine.RenderToFile(name, target, data, 0644); err != nil {
			return fmt.Errorf("failed to generate %s: %w", filepath.Base(target), err)
		}
	}
	return nil
}

// launcherFile maps "app.desktop.tmpl" to "<id>.desktop".
func launcherFile(id, templateName string) string {
	ext := strings.TrimSuffix(templateName, ".tmpl")
	if _, after, ok := strings.Cut(ext, "."); ok {
		ext = after
	}
	return id + "." + ext
}

// closer reports whether a is nearer to want than b, preferring the
// larger of two equally distant sizes.
func closer(a, b, want int) bool {
	da, db := abs(a-want), abs(b-want)
	if da != db {
		return da < db
	}
	return a > b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Load scans the output directory and registers every app found there,
// replacing the in-memory registry. Directories without a readable record
// are skipped and logged; leftover staging directories are ignored.
func (in *Installer) Load() error {
	entries, err := os.ReadDir(in.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	loaded := make(map[string]*InstalledApp)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		appDir := filepath.Join(in.outputDir, entry.Name())
		app, err := readApp(appDir)
		if err != nil {
			in.logger.Warn("Skipping app directory", "dir", appDir, "error", err)
			continue
		}
		loaded[app.ID] = app
	}

	in.mu.Lock()
	in.installed = loaded
	in.mu.Unlock()

	in.logger.Debug("Loaded installed apps", "count", len(loaded))
	return nil
}

func readApp(appDir string) (*InstalledApp, error) {
	raw, err := os.ReadFile(filepath.Join(appDir, recordFile))
	if err != nil {
		return nil, err
	}
	var rec record
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", recordFile, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%s has no id", recordFile)
	}

	info := webapp.WebApplicationInfo{
		Title:            rec.Title,
		Description:      rec.Description,
		AppURL:           rec.AppURL,
		IsBookmarkApp:    rec.IsBookmarkApp,
		IsOfflineEnabled: rec.IsOfflineEnabled,
	}
	for _, ir := range rec.Icons {
		ic := webapp.IconInfo{URL: ir.URL, Width: ir.Width, Height: ir.Height}
		if ir.File != "" {
			data, err := os.ReadFile(filepath.Join(appDir, filepath.FromSlash(ir.File)))
			if err != nil {
				return nil, fmt.Errorf("failed to read icon: %w", err)
			}
			ic.Data = data
		}
		info.AddIcon(ic)
	}

	return &InstalledApp{ID: rec.ID, Dir: appDir, Info: info, InstalledAt: rec.InstalledAt}, nil
}

// Uninstall removes the app's directory and forgets it.
func (in *Installer) Uninstall(id string) error {
	in.mu.Lock()
	app, ok := in.installed[id]
	if ok {
		delete(in.installed, id)
	}
	in.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInstalled, id)
	}
	if err := os.RemoveAll(app.Dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", app.Dir, err)
	}

	in.logger.Info("Uninstalled web application", "id", id)
	return nil
}

// IsInstalled reports whether id is installed.
func (in *Installer) IsInstalled(id string) bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	_, exists := in.installed[id]
	return exists
}

// Get returns a copy of the installed app.
func (in *Installer) Get(id string) (*InstalledApp, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	app, ok := in.installed[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, id)
	}
	return cloneApp(app), nil
}

// List returns copies of all installed apps ordered by ID.
func (in *Installer) List() []*InstalledApp {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]*InstalledApp, 0, len(in.installed))
	for _, app := range in.installed {
		out = append(out, cloneApp(app))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneApp(app *InstalledApp) *InstalledApp {
	cp := *app
	cp.Info = app.Info.Clone()
	return &cp
}

// AppID derives a directory-safe identifier from an app URL: host and path
// lowercased, with every run of other characters folded into '-'.
func AppID(appURL string) string {
	var src string
	if u, err := url.Parse(appURL); err == nil && u.Host != "" {
		src = u.Host + u.Path
	} else {
		src = appURL
	}

	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(src) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	id := strings.TrimSuffix(b.String(), "-")
	if id == "" {
		return "app"
	}
	return id
}
