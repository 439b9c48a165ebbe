package install

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"webappinfo/internal/webapp"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateEngine renders the launcher files written next to an installed app.
type TemplateEngine struct {
	templates map[string]*template.Template
}

// NewTemplateEngine parses every embedded template.
func NewTemplateEngine() (*TemplateEngine, error) {
	engine := &TemplateEngine{
		templates: make(map[string]*template.Template),
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		content, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		engine.templates[name] = tmpl
	}

	return engine, nil
}

// Render renders a template with the given data
func (e *TemplateEngine) Render(templateName string, data any) ([]byte, error) {
	tmpl, ok := e.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.Bytes(), nil
}

// RenderToFile renders a template and writes to file
func (e *TemplateEngine) RenderToFile(templateName, filePath string, data any, perm os.FileMode) error {
	content, err := e.Render(templateName, data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return os.WriteFile(filePath, content, perm)
}

// ListTemplates returns all template names, sorted.
func (e *TemplateEngine) ListTemplates() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LauncherData is what the launcher templates see.
type LauncherData struct {
	ID               string
	Title            string
	Description      string
	AppURL           string
	ExecURL          string // AppURL quoted as a desktop entry Exec argument
	IconPath         string // absolute path of the launcher icon, may be empty
	IsBookmarkApp    bool
	IsOfflineEnabled bool
}

// NewLauncherData flattens info for the templates. Values are made safe for
// single-line key=value formats.
func NewLauncherData(id string, info webapp.WebApplicationInfo, iconPath string) *LauncherData {
	title := singleLine(info.Title)
	if title == "" {
		title = id
	}
	appURL := singleLine(info.AppURL)
	return &LauncherData{
		ID:               id,
		Title:            title,
		Description:      singleLine(info.Description),
		AppURL:           appURL,
		ExecURL:          execArg(appURL),
		IconPath:         iconPath,
		IsBookmarkApp:    info.IsBookmarkApp,
		IsOfflineEnabled: info.IsOfflineEnabled,
	}
}

// singleLine folds line breaks into spaces.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

// execArg quotes s as one argument of a desktop entry Exec key. Quoting
// escapes are applied first, then the string-value backslash escape, then
// '%' is doubled so it is not read as a field code.
func execArg(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '`', '$', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	quoted := strings.ReplaceAll(b.String(), `\`, `\\`)
	return strings.ReplaceAll(quoted, "%", "%%")
}
