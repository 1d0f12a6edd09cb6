package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"

	"command-center/pkg/archive"
	"command-center/pkg/client"
	"command-center/pkg/config"
	"command-center/pkg/discovery"
	"command-center/pkg/registry"
	"command-center/pkg/stream"
	"command-center/pkg/version"
	"command-center/pkg/view"
)

func main() {
	cfg := config.Load()

	apiURL := flag.String("api", cfg.APIURL, "backend base URL (env API_URL)")
	token := flag.String("token", cfg.AuthToken, "bearer token for HTTP and the event stream (env AUTH_TOKEN)")
	userID := flag.String("user", cfg.UserID, "user id attached to dispatches (env USER_ID)")
	archivePath := flag.String("archive", cfg.ArchivePath, "sqlite session archive path, empty disables (env ARCHIVE_PATH)")
	agentsOnly := flag.Bool("agents", false, "print the agent registry as a table and exit")
	filterName := flag.String("filter", "all", "registry filter for -agents: all|verified|high-rep")
	search := flag.String("search", "", "registry search for -agents")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("commandcenter version=%s", version.Build)
		return
	}

	base := resolveBase(*apiURL, cfg.ConsulAddr)
	api := client.New(base, *token, *userID)

	if *agentsOnly {
		if err := printAgents(api, registry.Filter(*filterName), *search); err != nil {
			log.Fatalf("list agents failed: %v", err)
		}
		return
	}

	vm := view.New()
	events := make(chan struct{}, 16)
	sink := stream.MultiSink{vm, notifySink{ch: events}}
	if *archivePath != "" {
		arch, err := archive.Open(*archivePath)
		if err != nil {
			log.Fatalf("archive open failed: %v", err)
		}
		defer arch.Close()
		sink = append(sink, arch)
	}

	mgr, err := stream.New(base, *token, sink)
	if err != nil {
		log.Fatalf("stream setup failed: %v", err)
	}
	defer mgr.Close()

	m := newDashboard(api, mgr, vm, events)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "commandcenter: %v\n", err)
		os.Exit(1)
	}
}

// resolveBase picks the backend base URL: explicit flag/env first, then
// Consul discovery, then the local default.
func resolveBase(apiURL, consulAddr string) string {
	if apiURL != "" {
		return strings.TrimRight(apiURL, "/")
	}
	if consulAddr != "" && discovery.Enabled() {
		if base, err := discovery.Resolve(consulAddr, discovery.BackendService); err == nil {
			log.Printf("resolved backend via consul: %s", base)
			return base
		} else {
			log.Printf("consul discovery failed, using default: %v", err)
		}
	}
	return config.DefaultAPIURL
}

func printAgents(api *client.Client, f registry.Filter, query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	agents, err := api.Agents(ctx)
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Rep", "Trust", "Chain", "Tags", "Description"})
	for _, a := range registry.Apply(agents, f, query) {
		tw.AppendRow(table.Row{a.ID, a.Name, a.Reputation, a.TrustLayer, a.Chain, strings.Join(a.Tags, ","), a.Description})
	}
	tw.Render()
	return nil
}
