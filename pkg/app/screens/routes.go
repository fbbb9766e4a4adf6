package screens

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/config"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/sources"
)

type RouteKind int

const (
	Home RouteKind = iota
	Library
	Downloads
	MangaPage
)

// tabs are the routes reachable with tab, in cycling order.
var tabs = []RouteKind{Home, Library, Downloads}

// Route is the current navigation target. Manga is only set for MangaPage.
type Route struct {
	Kind  RouteKind
	Manga data.Manga
}

func MangaRoute(manga data.Manga) Route {
	return Route{Kind: MangaPage, Manga: manga}
}

func (r Route) Equal(other Route) bool {
	if r.Kind != other.Kind {
		return false
	}
	return r.Kind != MangaPage || r.Manga.Equal(other.Manga)
}

// Title is the short name shown in the tab bar.
func (r Route) Title() string {
	switch r.Kind {
	case Home:
		return "Home"
	case Library:
		return "Library"
	case Downloads:
		return "Downloads"
	case MangaPage:
		return r.Manga.Title
	default:
		return ""
	}
}

// FullTitle names the connector as well for manga pages.
func (r Route) FullTitle(registry *sources.Registry) string {
	if r.Kind != MangaPage {
		return r.Title()
	}
	return fmt.Sprintf("Manga - %s - %s", r.Manga.Title, connectorLabel(registry, r.Manga.Connector))
}

// connectorLabel falls back to the raw id for connectors that are not
// registered.
func connectorLabel(registry *sources.Registry, id data.ConnectorID) string {
	if registry != nil {
		if connector, ok := registry.Get(id); ok {
			return connector.Info().Label
		}
	}
	return string(id)
}

func WindowTitle(r Route, registry *sources.Registry) string {
	return fmt.Sprintf("%s - [%s]", config.AppName, r.FullTitle(registry))
}

// NavigateMsg switches the root screen to Route. Navigating to the current
// route does nothing.
type NavigateMsg struct {
	Route Route
}

// FetchMangaDetailMsg resolves a user supplied URL and opens its manga page.
type FetchMangaDetailMsg struct {
	URL string
}

func Navigate(route Route) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: route} }
}
