package site

import (
	"html/template"
	"io"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/render"
	"github.com/dgallion1/docsite/internal/resolve"
)

// NavLink is one sidebar entry.
type NavLink struct {
	Title    string
	URL      string
	Selected bool
}

// NavGroup is one sidebar section.
type NavGroup struct {
	Title string
	Links []NavLink
}

// PageData is everything the page template needs.
type PageData struct {
	SiteName    string
	Logo        string
	Title       string
	Description string
	Route       string
	Nav         []NavGroup
	Outline     []*render.Section
	Body        template.HTML
	SearchURL   string
}

// Navigation builds the sidebar for tree, marking the entry for route.
func (s *Set) Navigation(tree *doctree.Tree, route string) []NavGroup {
	if tree == nil {
		return nil
	}
	groups := make([]NavGroup, 0, len(tree.Groups))
	for _, g := range tree.Groups {
		ng := NavGroup{Title: g.Title}
		for _, e := range g.Entries {
			ng.Links = append(ng.Links, NavLink{
				Title:    e.Title,
				URL:      s.URL(e.Route),
				Selected: e.Route == route,
			})
		}
		groups = append(groups, ng)
	}
	return groups
}

// PageData assembles template data for a resolved and rendered document.
func (s *Set) PageData(doc *resolve.Document, page *render.Page) PageData {
	title := doc.Title()
	if _, ok := doc.FrontMatter["title"]; !ok && page.Title != "" {
		title = page.Title
	}
	desc, _ := doc.FrontMatter["description"].(string)
	if desc == "" {
		desc = render.Summary(page.HTML, 160)
	}
	name := doc.Tree.Name
	if name == "" {
		name = s.Name
	}
	return PageData{
		SiteName:    name,
		Logo:        doc.Tree.Logo,
		Title:       title,
		Description: desc,
		Route:       doc.Route,
		Nav:         s.Navigation(doc.Tree, doc.Route),
		Outline:     page.Outline,
		// Body comes from the content author, who is trusted like the index.
		Body:      template.HTML(page.HTML),
		SearchURL: "/" + s.Mount + "/search.json",
	}
}

// WritePage renders the full HTML page.
func WritePage(w io.Writer, data PageData) error {
	return pageTemplate.Execute(w, data)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · {{.SiteName}}</title>
{{- with .Description}}
<meta name="description" content="{{.}}">
{{- end}}
</head>
<body>
<header>
{{- if .Logo}}<img class="logo" src="{{.Logo}}" alt="{{.SiteName}}">{{end}}
<span class="site-name">{{.SiteName}}</span>
</header>
<nav class="sidebar">
{{- range .Nav}}
<section>
<h2>{{.Title}}</h2>
<ul>
{{- range .Links}}
<li{{if .Selected}} class="selected" aria-current="page"{{end}}><a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
</ul>
</section>
{{- end}}
</nav>
<main data-route="{{.Route}}" data-search="{{.SearchURL}}">
{{.Body}}
</main>
{{- if .Outline}}
<aside class="toc">
{{- template "outline" .Outline}}
</aside>
{{- end}}
</body>
</html>
{{define "outline"}}<ul>
{{- range .}}{{if .Title}}
<li>{{if .ID}}<a href="#{{.ID}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}
{{- if .Children}}{{template "outline" .Children}}{{end}}</li>
{{- end}}{{end}}
</ul>{{end}}
`))
