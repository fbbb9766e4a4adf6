package screens

import (
	"context"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
)

// iconRequests loads the covers of a manga list, one future per entry, and
// attaches them to the list as they arrive.
type iconRequests struct {
	ctl     *services.Controller
	node    bridge.NodeID
	list    *components.MangaList
	pending map[bridge.RequestID]*bridge.Future[image.Image]
}

func newIconRequests(ctl *services.Controller, node bridge.NodeID, list *components.MangaList) *iconRequests {
	return &iconRequests{
		ctl:     ctl,
		node:    node,
		list:    list,
		pending: make(map[bridge.RequestID]*bridge.Future[image.Image]),
	}
}

func (r *iconRequests) load(manga data.Manga) tea.Cmd {
	if manga.IconURL == "" {
		r.list.SetIcon(manga.URL, components.IconPlaceholder("?"))
		return nil
	}
	var f *bridge.Future[image.Image]
	f = bridge.NewFuture(r.ctl.Runtime, r.node,
		func(ctx context.Context) (image.Image, error) {
			return r.ctl.Images.Load(ctx, manga.IconURL, manga.URL)
		},
		func(res bridge.Result[image.Image]) tea.Cmd {
			delete(r.pending, f.ID())
			if res.Err != nil {
				r.ctl.Log.Warn("icon unavailable", "url", manga.IconURL, "err", res.Err)
				r.list.SetIcon(manga.URL, components.IconPlaceholder("?"))
				return nil
			}
			r.list.SetIcon(manga.URL, components.RenderIcon(res.Value, components.IconWidth))
			return nil
		},
	)
	r.pending[f.ID()] = f
	return f.Cmd()
}

func (r *iconRequests) handle(msg tea.Msg) (tea.Cmd, bool) {
	resp, ok := msg.(bridge.Response[image.Image])
	if !ok {
		return nil, false
	}
	f, ok := r.pending[resp.Request]
	if !ok {
		return nil, false
	}
	return f.Handle(msg)
}

func (r *iconRequests) busy() bool {
	return len(r.pending) > 0
}
