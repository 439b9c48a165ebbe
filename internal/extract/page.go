package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"webappinfo/internal/webapp"
)

// iconRels are the rel tokens that mark a <link> as an icon.
var iconRels = []string{
	"icon",
	"apple-touch-icon",
	"apple-touch-icon-precomposed",
}

// pageMeta collects what the tree walk finds before it is turned into a
// WebApplicationInfo.
type pageMeta struct {
	title       string
	appName     string
	ogTitle     string
	description string
	canonical   string
	manifest    string
	offline     bool
	icons       []webapp.IconInfo
	images      []string // og:image and twitter:image, used after <link> icons
}

// FromDocument parses an HTML page located at base and returns the
// metadata it declares together with the resolved manifest URL, which is
// empty when the page links none. The returned info is a bookmark app.
func FromDocument(base *url.URL, r io.Reader) (*webapp.WebApplicationInfo, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	var m pageMeta
	walk(base, doc, &m)

	info := webapp.New()
	info.IsBookmarkApp = true
	info.IsOfflineEnabled = m.offline
	info.Description = m.description

	switch {
	case m.appName != "":
		info.Title = m.appName
	case m.ogTitle != "":
		info.Title = m.ogTitle
	default:
		info.Title = m.title
	}

	info.AppURL = base.String()
	if m.canonical != "" {
		info.AppURL = m.canonical
	}

	for _, ic := range m.icons {
		addIcon(info, ic)
	}
	for _, src := range m.images {
		addIcon(info, webapp.IconInfo{URL: src})
	}

	return info, m.manifest, nil
}

func walk(base *url.URL, n *html.Node, m *pageMeta) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if m.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				m.title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "link":
			readLink(base, n, m)
		case "meta":
			readMeta(base, n, m)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(base, c, m)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func readLink(base *url.URL, n *html.Node, m *pageMeta) {
	href := resolve(base, attr(n, "href"))
	if href == "" {
		return
	}

	rels := strings.Fields(strings.ToLower(attr(n, "rel")))
	for _, rel := range rels {
		switch rel {
		case "canonical":
			if m.canonical == "" {
				m.canonical = href
			}
			return
		case "manifest":
			if m.manifest == "" {
				m.manifest = href
			}
			return
		}
	}

	if !isIconRel(rels) {
		return
	}
	sz := largestSize(parseSizes(attr(n, "sizes")))
	m.icons = append(m.icons, webapp.IconInfo{URL: href, Width: sz[0], Height: sz[1]})
}

func isIconRel(rels []string) bool {
	for _, rel := range rels {
		for _, want := range iconRels {
			if rel == want {
				return true
			}
		}
	}
	return false
}

func readMeta(base *url.URL, n *html.Node, m *pageMeta) {
	key := attr(n, "name")
	if key == "" {
		key = attr(n, "property")
	}
	content := attr(n, "content")

	switch strings.ToLower(key) {
	case "application-name":
		if m.appName == "" {
			m.appName = content
		}
	case "og:title":
		if m.ogTitle == "" {
			m.ogTitle = content
		}
	case "description":
		if m.description == "" {
			m.description = content
		}
	case "offline-enabled":
		m.offline = strings.EqualFold(content, "true")
	case "og:image", "twitter:image":
		if src := resolve(base, content); src != "" {
			m.images = append(m.images, src)
		}
	}
}

// resolve turns ref into an absolute http(s) URL relative to base, or ""
// when ref is empty, unparsable, or uses another scheme (data:, javascript:).
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// addIcon appends ic unless an icon with the same URL is present. A URL
// declaring several sizes is kept once; the fetcher reads its real
// dimensions and expands ICO frames.
func addIcon(info *webapp.WebApplicationInfo, ic webapp.IconInfo) {
	for _, have := range info.Icons {
		if have.URL == ic.URL {
			return
		}
	}
	info.AddIcon(ic)
}
