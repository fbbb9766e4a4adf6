package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/app/screens"
	"github.com/kerbaras/mangetsu/pkg/services"
)

type App struct {
	ctl *services.Controller
}

func NewApp(ctl *services.Controller) *App {
	return &App{ctl: ctl}
}

// Run blocks until the user quits. The runtime is attached before the loop
// starts; early responses wait in Send until the loop reads them.
func (a *App) Run() error {
	model := screens.NewRootScreen(a.ctl)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	a.ctl.Runtime.Start(p)
	_, err := p.Run()
	return err
}
