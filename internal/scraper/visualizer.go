package scraper

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tesh254/tracklist/internal/tracklist"
)

func (s *Scraper) displayInitBanner() {
	if s.Verbose {
		green := color.New(color.FgGreen).SprintFunc()
		banner := "==============================================================================\n"
		banner += green("       🎵 Tracklist Scraper Initialized 🎵\n")
		banner += "==============================================================================\n"
		banner += fmt.Sprintf("Target: %s\n", s.URL)
		banner += "Configuration:\n"
		banner += fmt.Sprintf("  - Render: %t\n", s.Config.Render)
		banner += fmt.Sprintf("  - List Selector: %s\n", s.Config.ListSelector)
		banner += fmt.Sprintf("  - Name Selector: %s\n", s.Config.NameSelector)
		banner += fmt.Sprintf("  - Request Delay: %s\n", s.Config.RequestDelay)
		banner += "=============================================================================="
		fmt.Println(banner)
	}
}

func (s *Scraper) displayMetadata() {
	if s.Verbose {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Field", "Value"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignLeft, WidthMax: 20},
			{Number: 2, Align: text.AlignLeft, WidthMax: 80},
		})

		t.AppendRow(table.Row{"Title", s.Metadata.Title})
		t.AppendRow(table.Row{"Description", s.Metadata.Description})
		t.AppendSeparator()
		t.Render()
	}
}

func (s *Scraper) displayListing(l *tracklist.Listing) {
	if s.Verbose {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle(l.Name)
		t.AppendHeader(table.Row{"#", "Track"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight},
			{Number: 2, Align: text.AlignLeft, WidthMax: 90},
		})

		for i, line := range l.Lines() {
			t.AppendRow(table.Row{strconv.Itoa(i + 1), line})
		}
		t.Render()
	}
}

func (s *Scraper) displayError(err error) {
	if s.Verbose {
		red := color.New(color.FgRed).SprintFunc()
		box := "┌────── " + red("⚠ Error") + " ──────┐\n"
		box += fmt.Sprintf("│ %-20s │\n", err.Error())
		box += "└─────────────────────┘"
		fmt.Println(box)
	}
}

func (s *Scraper) startSpinner(message string) chan struct{} {
	done := make(chan struct{})
	if s.Verbose {
		os.Stdout.Sync()
		go func() {
			spinner := `|/-\`
			i := 0
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			var mu sync.Mutex
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					fmt.Fprintf(os.Stdout, "\r%s... [%s]", color.YellowString("%s", message), string(spinner[i]))
					os.Stdout.Sync()
					mu.Unlock()
					i = (i + 1) % len(spinner)
				case <-done:
					mu.Lock()
					fmt.Fprintf(os.Stdout, "\r%s... [%s]\n", color.GreenString("%s", message), "✔")
					os.Stdout.Sync()
					mu.Unlock()
					return
				}
			}
		}()
	}
	return done
}
