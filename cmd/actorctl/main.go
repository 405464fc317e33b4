// Command actorctl is a read-only live view of one node's actor table:
// it polls the gateway's /debug/actors endpoint and renders the
// snapshots as a terminal table. It never sends a command back to the
// node — spec.md §1 scopes the interactive debug console (text commands
// against a running node) out as a non-goal; this stays a pure observer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// actorRow mirrors actorcore.MetricsSnapshot's JSON shape without
// importing the runtime package — actorctl talks to a node only over
// HTTP, the same arm's-length relationship the teacher's own peripheral
// tools have with the service they observe.
type actorRow struct {
	Handle          int64     `json:"Handle"`
	Name            string    `json:"Name"`
	ImplKind        string    `json:"ImplKind"`
	QueueLength     int64     `json:"QueueLength"`
	Processed       int64     `json:"Processed"`
	Exceptions      int64     `json:"Exceptions"`
	AverageTicks    float64   `json:"AverageTicks"`
	LastProcessedAt time.Time `json:"LastProcessedAt"`
	TraceEnabled    bool      `json:"TraceEnabled"`
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "base URL of the node's gateway HTTP surface")
	interval := flag.Duration("interval", time.Second, "refresh interval")
	flag.Parse()

	if err := ui.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "actorctl: failed to init terminal: %v\n", err)
		os.Exit(1)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = "actors @ " + *addr
	table.RowSeparator = true
	table.Rows = [][]string{{"handle", "name", "impl", "queue", "processed", "exceptions", "avg ns", "trace"}}
	resize(table)
	ui.Render(table)

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return
			case "<Resize>":
				resize(table)
				ui.Render(table)
			}
		case <-ticker.C:
			rows, err := fetchSnapshot(client, *addr)
			if err != nil {
				table.Title = fmt.Sprintf("actors @ %s (error: %v)", *addr, err)
			} else {
				table.Title = "actors @ " + *addr
				table.Rows = append([][]string{table.Rows[0]}, rows...)
			}
			ui.Render(table)
		}
	}
}

func resize(table *widgets.Table) {
	w, h := ui.TerminalDimensions()
	table.SetRect(0, 0, w, h)
}

func fetchSnapshot(client *http.Client, addr string) ([][]string, error) {
	resp, err := client.Get(addr + "/debug/actors")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var snapshots []actorRow
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Handle < snapshots[j].Handle })

	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", s.Handle),
			s.Name,
			s.ImplKind,
			fmt.Sprintf("%d", s.QueueLength),
			fmt.Sprintf("%d", s.Processed),
			fmt.Sprintf("%d", s.Exceptions),
			fmt.Sprintf("%.0f", s.AverageTicks),
			fmt.Sprintf("%t", s.TraceEnabled),
		})
	}
	return rows, nil
}
