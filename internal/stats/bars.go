package stats

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/rollstats/internal/histogram"
)

const (
	barRune             = '█'
	axisSeparator       = " │ "
	minBarWidth         = 10
	colorReset          = "\x1b[0m"
	colorHigh           = "\x1b[32m"
	colorLow            = "\x1b[31m"
	colorBar            = "\x1b[36m"
	terminalWidthBackup = 80
)

// RenderDistribution draws one horizontal bar per outcome of d, scaled to
// the most rolled outcome. A width of 0 fits the terminal.
func RenderDistribution(w io.Writer, title string, d histogram.Die, width int) error {
	return renderDistribution(w, title, d, width, false)
}

// RenderDistributionWithColor draws the distribution with optional forced
// color output. Most rolled outcomes are green, least rolled red.
func RenderDistributionWithColor(w io.Writer, title string, d histogram.Die, width int, forceColor bool) error {
	return renderDistribution(w, title, d, width, forceColor)
}

func renderDistribution(w io.Writer, title string, d histogram.Die, width int, forceColor bool) error {
	if width <= 0 {
		width = terminalWidth()
	}
	total := d.Total()
	most, least := Extremes(d)
	maxCount := 0
	for _, c := range d.Counts {
		if c > maxCount {
			maxCount = c
		}
	}

	labelWidth := len(strconv.Itoa(d.Faces))
	countWidth := len(strconv.Itoa(maxCount))
	suffixWidth := 1 + countWidth + len(" (100.0%)")
	barWidth := BarWidthFor(width, labelWidth, suffixWidth)
	useColor := shouldUseColor(w, forceColor)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for i, c := range d.Counts {
		outcome := i + 1
		n := 0
		if maxCount > 0 {
			n = c * barWidth / maxCount
		}
		if c > 0 && n == 0 {
			n = 1
		}
		bar := strings.Repeat(string(barRune), n)
		if useColor && n > 0 {
			bar = barColor(outcome, most, least, total) + bar + colorReset
		}
		pad := strings.Repeat(" ", barWidth-n)
		pct := 0.0
		if total > 0 {
			pct = float64(c) / float64(total) * 100
		}
		line := fmt.Sprintf("%*d%s%s%s %*d (%.1f%%)", labelWidth, outcome, axisSeparator, bar, pad, countWidth, c, pct)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// BarWidthFor computes the room left for bars once labels and counts fit.
func BarWidthFor(totalWidth, labelWidth, suffixWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	barWidth := totalWidth - labelWidth - runewidth.StringWidth(axisSeparator) - suffixWidth
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	return barWidth
}

func barColor(outcome int, most, least []int, total int) string {
	if total == 0 {
		return colorBar
	}
	if containsInt(most, outcome) {
		return colorHigh
	}
	if containsInt(least, outcome) {
		return colorLow
	}
	return colorBar
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
