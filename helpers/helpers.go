package helpers

import (
	"image/color"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdp/qrterminal/v3"
	"github.com/muesli/gamut"
)

var addressRe = regexp.MustCompile(`^-?\d+:[0-9a-fA-F]{64}$`)

// ShortenAddr shortens a workchain:hex address for display
func ShortenAddr(addr string) string {
	if utf8.RuneCountInString(addr) < 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// IsValidAddress checks if a string is a raw Venom address (workchain:64 hex)
func IsValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// LoadedAt formats the loaded timestamp
func LoadedAt(t time.Time, loading bool) string {
	if loading {
		return "loading…"
	}
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

// FadeString creates a gradient colored string
func FadeString(s string, firstColor string, lastColor string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	blends := gamut.Blends(lipgloss.Color(firstColor), lipgloss.Color(lastColor), n)
	return rainbow(lipgloss.NewStyle(), s, blends)
}

func rainbow(baseStyle lipgloss.Style, str string, colors []color.Color) string {
	var b strings.Builder
	i := 0
	for _, c := range str {
		col, _ := colorful.MakeColor(colors[i%len(colors)])
		b.WriteString(baseStyle.Foreground(lipgloss.Color(col.Hex())).Render(string(c)))
		i++
	}
	return b.String()
}

// QRCode renders s as a half-block terminal QR code
func QRCode(s string) string {
	var b strings.Builder
	qrterminal.GenerateWithConfig(s, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &b,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})
	return b.String()
}

// Max returns the maximum of two integers
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum of two integers
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
