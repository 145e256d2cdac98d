package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/pgfleet/pkg/cluster"
	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/dcs"
	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/patroni"
	"github.com/dd0wney/pgfleet/pkg/probe"
	"github.com/dd0wney/pgfleet/pkg/proxy"
	"github.com/dd0wney/pgfleet/pkg/topology"
)

var (
	configPath string
	logLevel   string
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgfleet",
		Short:         "PostgreSQL cluster status and membership management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/pgfleet/config.yaml", "configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newNodeCmd())
	root.AddCommand(newMonitorCmd())
	return root
}

// runtime bundles the wired collaborators for one invocation.
type runtime struct {
	cfg        config.Config
	store      *dcs.Client
	checker    *cluster.Checker
	controller *cluster.Controller
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	prober, err := probe.New(cfg)
	if err != nil {
		return nil, err
	}
	store := dcs.NewClient(cfg, dcs.ExecRunner{})
	ctl := patroni.NewCtl(cfg, patroni.ExecRunner{})
	stats := proxy.SocketStats{Addr: cfg.Proxy.StatsAddr, Timeout: config.ProbeTimeout}

	resolver, err := topology.New(cfg, store, ctl, stats)
	if err != nil {
		return nil, err
	}

	editor := proxy.FileEditor{Path: cfg.Proxy.ConfigPath, CAPath: cfg.Proxy.CAPath}
	services := proxy.SystemctlManager{}

	return &runtime{
		cfg:        cfg,
		store:      store,
		checker:    cluster.NewChecker(resolver, prober),
		controller: cluster.NewController(cfg, resolver, prober, store, ctl, editor, services),
	}, nil
}
