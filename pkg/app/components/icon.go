package components

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/nfnt/resize"
)

// IconWidth is the width in cells of list icons. Covers are roughly 2:3, so
// IconRows cells of half blocks hold them.
const (
	IconWidth = 8
	IconRows  = 6
)

// RenderIcon draws img with upper half blocks, two pixel rows per line: the
// top pixel is the foreground and the bottom one the background.
func RenderIcon(img image.Image, width int) string {
	if img == nil || width <= 0 {
		return ""
	}
	scaled := resize.Resize(uint(width), 0, img, resize.Bilinear)
	b := scaled.Bounds()

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			cell := lipgloss.NewStyle().Foreground(hexColor(scaled.At(x, y)))
			if y+1 < b.Max.Y {
				cell = cell.Background(hexColor(scaled.At(x, y+1)))
			}
			sb.WriteString(cell.Render("▀"))
		}
	}
	return sb.String()
}

// IconPlaceholder fills the icon box while the image loads or when it failed.
func IconPlaceholder(label string) string {
	return lipgloss.NewStyle().
		Width(IconWidth).
		Height(IconRows).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(styles.Muted).
		Render(label)
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
