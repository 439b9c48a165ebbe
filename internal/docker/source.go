package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"webappinfo/internal/webapp"
)

// Container labels read by FromContainer.
const (
	LabelEnable   = "webapp.enable"
	LabelTitle    = "webapp.title"
	LabelDesc     = "webapp.desc"
	LabelURL      = "webapp.url"
	LabelIcon     = "webapp.icon"
	LabelProtocol = "webapp.protocol"
	LabelPort     = "webapp.port"
	LabelPath     = "webapp.path"
	LabelOffline  = "webapp.offline"
	LabelBookmark = "webapp.bookmark"
)

// Source discovers web applications served by labelled Docker containers.
type Source struct {
	dockerClient *client.Client
	host         string
	logger       *slog.Logger
}

// NewSource connects to the Docker daemon from the environment. host is the
// hostname used in generated app URLs, "localhost" when empty.
func NewSource(host string, logger *slog.Logger) (*Source, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	if host == "" {
		host = "localhost"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dockerClient: cli, host: host, logger: logger}, nil
}

// Discover returns an application for every running container labelled
// webapp.enable=true, ordered by title.
func (s *Source) Discover(ctx context.Context) ([]*webapp.WebApplicationInfo, error) {
	containers, err := s.dockerClient.ContainerList(ctx, dockercontainer.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", LabelEnable+"=true")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var apps []*webapp.WebApplicationInfo
	for _, c := range containers {
		inspect, err := s.dockerClient.ContainerInspect(ctx, c.ID)
		if err != nil {
			s.logger.Warn("Failed to inspect container", "container", shortID(c.ID), "error", err)
			continue
		}
		info, ok := FromContainer(&inspect, s.host)
		if !ok {
			continue
		}
		s.logger.Debug("Discovered web application", "container", shortID(c.ID), "url", info.AppURL)
		apps = append(apps, info)
	}

	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Title < apps[j].Title })
	return apps, nil
}

// Close closes the Docker client
func (s *Source) Close() error {
	if s.dockerClient != nil {
		return s.dockerClient.Close()
	}
	return nil
}

// FromContainer maps container labels onto a WebApplicationInfo. It reports
// false for containers without webapp.enable=true or without a reachable
// URL.
//
//	webapp.title     -> Title (default: prettified container name)
//	webapp.desc      -> Description
//	webapp.url       -> AppURL (default: <protocol>://<host>:<port><path>)
//	webapp.icon      -> single icon candidate (default: guessed from image)
//	webapp.offline   -> IsOfflineEnabled
//	webapp.bookmark  -> IsBookmarkApp (default true)
func FromContainer(container *dockercontainer.InspectResponse, host string) (*webapp.WebApplicationInfo, bool) {
	if container == nil || container.Config == nil {
		return nil, false
	}
	labels := container.Config.Labels
	if !getBool(labels, LabelEnable, false) {
		return nil, false
	}

	var name string
	if container.ContainerJSONBase != nil {
		name = strings.TrimPrefix(container.Name, "/")
	}
	if host == "" {
		host = "localhost"
	}

	appURL := getLabel(labels, LabelURL, "")
	if appURL == "" {
		port := getLabel(labels, LabelPort, extractFirstPort(container))
		if port == "" {
			return nil, false
		}
		path := getLabel(labels, LabelPath, "/")
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		appURL = fmt.Sprintf("%s://%s:%s%s", getLabel(labels, LabelProtocol, "http"), host, port, path)
	}

	info := webapp.New()
	info.Title = getLabel(labels, LabelTitle, prettifyName(name))
	info.Description = getLabel(labels, LabelDesc, "")
	info.AppURL = appURL
	info.IsBookmarkApp = getBool(labels, LabelBookmark, true)
	info.IsOfflineEnabled = getBool(labels, LabelOffline, false)
	info.AddIcon(webapp.IconInfo{URL: getLabel(labels, LabelIcon, guessIcon(container.Config.Image))})
	return info, true
}

// getLabel gets a label value with fallback
func getLabel(labels map[string]string, key, fallback string) string {
	if val, ok := labels[key]; ok && val != "" {
		return val
	}
	return fallback
}

func getBool(labels map[string]string, key string, fallback bool) bool {
	v, err := strconv.ParseBool(getLabel(labels, key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// extractFirstPort returns the lowest published host port.
func extractFirstPort(container *dockercontainer.InspectResponse) string {
	if container.ContainerJSONBase == nil || container.HostConfig == nil {
		return ""
	}

	var ports []int
	for _, bindings := range container.HostConfig.PortBindings {
		for _, binding := range bindings {
			if p, err := strconv.Atoi(binding.HostPort); err == nil && p > 0 {
				ports = append(ports, p)
			}
		}
	}
	if len(ports) == 0 {
		return ""
	}
	sort.Ints(ports)
	return strconv.Itoa(ports[0])
}

// guessIcon picks a dashboard icon URL based on the image name.
func guessIcon(image string) string {
	parts := strings.Split(image, "/")
	imageName := strings.Split(parts[len(parts)-1], ":")[0]

	iconMap := map[string]string{
		"jellyfin": "jellyfin", "portainer": "portainer", "nginx": "nginx",
		"plex": "plex", "sonarr": "sonarr", "radarr": "radarr", "traefik": "traefik",
		"grafana": "grafana", "prometheus": "prometheus", "homeassistant": "home-assistant",
		"nextcloud": "nextcloud", "gitea": "gitea", "gitlab": "gitlab", "jenkins": "jenkins",
		"minio": "minio", "kibana": "kibana", "wordpress": "wordpress", "ghost": "ghost",
		"memos": "memos", "vaultwarden": "vaultwarden", "bitwarden": "bitwarden",
	}

	if iconName, ok := iconMap[strings.ToLower(imageName)]; ok {
		return fmt.Sprintf("https://cdn.jsdelivr.net/gh/homarr-labs/dashboard-icons/png/%s.png", iconName)
	}

	return "https://cdn.jsdelivr.net/gh/homarr-labs/dashboard-icons/png/docker.png"
}

// prettifyName converts a container name to a title
func prettifyName(name string) string {
	name = strings.TrimSuffix(name, "-1")
	name = strings.TrimSuffix(name, "_1")
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	return strings.Join(words, " ")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
