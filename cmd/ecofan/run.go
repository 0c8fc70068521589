package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/discovery"
	"github.com/muurk/ecofan/internal/logging"
	"github.com/muurk/ecofan/internal/metrics"
	"github.com/muurk/ecofan/internal/mqtt"
	"github.com/muurk/ecofan/internal/platform"
	"github.com/muurk/ecofan/internal/server"
	"github.com/muurk/ecofan/internal/version"
)

// Run command flags
var (
	listenAddr   string
	pollInterval time.Duration
	logLevel     string
	mqttBroker   string
	mqttClientID string
	mqttUsername string
	mqttPrefix   string
	advertise    bool
	advertiseAs  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP API address (default: from config, 127.0.0.1:8124)")
	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "How often each fan is refreshed (default: from config, 30s)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled if empty)")
	runCmd.Flags().StringVar(&mqttClientID, "mqtt-client-id", "", "MQTT client ID (default: ecofan-<hostname>)")
	runCmd.Flags().StringVar(&mqttUsername, "mqtt-username", "", "MQTT username; the password is read from "+config.MQTTPasswordEnvVar)
	runCmd.Flags().StringVar(&mqttPrefix, "mqtt-prefix", "", "MQTT topic prefix (default: ecofan)")
	runCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the bridge API over mDNS as "+discovery.ServiceType)
	runCmd.Flags().StringVar(&advertiseAs, "advertise-name", "", "mDNS instance name (default: ecofan on <hostname>)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll every configured fan and serve the local API",
	Long: `Run ecofan as a long-lived bridge.

Every configured fan is refreshed on the poll interval. Their state is
served over a local HTTP API with a WebSocket event stream and Prometheus
metrics at /metrics. When an MQTT broker is configured, state is also
published to <prefix>/<id>/state and commands are accepted on
<prefix>/<id>/set. With --advertise the API is announced over mDNS so
'ecofan bridges' can find it.

The bridge stops cleanly on SIGINT or SIGTERM.`,
	Example: `  # Local API only
  ecofan run

  # Expose on the LAN with MQTT
  ecofan run --listen 0.0.0.0:8124 --mqtt-broker tcp://broker.local:1883`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: runBridge,
}

// bridgeSettings merges flags over registry preferences.
type bridgeSettings struct {
	listen   string
	interval time.Duration
	timeout  time.Duration
	mqtt     *mqtt.Config
}

func resolveSettings(reg *config.Registry) bridgeSettings {
	prefs := reg.Preferences
	s := bridgeSettings{
		listen:   prefs.Listen,
		interval: prefs.PollInterval,
		timeout:  requestTimeout(reg),
	}
	if listenAddr != "" {
		s.listen = listenAddr
	}
	if pollInterval > 0 {
		s.interval = pollInterval
	}

	var cfg mqtt.Config
	if prefs.MQTT != nil {
		cfg = mqtt.Config{
			Broker:      prefs.MQTT.Broker,
			ClientID:    prefs.MQTT.ClientID,
			Username:    prefs.MQTT.Username,
			TopicPrefix: prefs.MQTT.TopicPrefix,
		}
	}
	if mqttBroker != "" {
		cfg.Broker = mqttBroker
	}
	if mqttClientID != "" {
		cfg.ClientID = mqttClientID
	}
	if mqttUsername != "" {
		cfg.Username = mqttUsername
	}
	if mqttPrefix != "" {
		cfg.TopicPrefix = mqttPrefix
	}
	if cfg.Broker != "" {
		if cfg.ClientID == "" {
			host, _ := os.Hostname()
			cfg.ClientID = "ecofan-" + host
		}
		if cfg.TopicPrefix == "" {
			cfg.TopicPrefix = config.DefaultTopicPrefix
		}
		cfg.Password = os.Getenv(config.MQTTPasswordEnvVar)
		cfg.QoS = 1
		s.mqtt = &cfg
	}
	return s
}

func runBridge(cmd *cobra.Command, args []string) error {
	log := logging.Named("bridge")

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	settings := resolveSettings(reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := platform.NewExecutor(platform.DefaultWorkers, logging.Named("executor"))
	defer exec.Close()

	p := platform.New(exec,
		platform.WithRequestTimeout(settings.timeout),
		platform.WithLogger(logging.Named("platform")),
	)

	entries := reg.ListEntries()
	if len(entries) == 0 {
		log.Warn("No fans configured; run 'ecofan setup' to add one")
	}
	for _, e := range entries {
		if _, err := p.SetupEntry(ctx, e); err != nil {
			log.Error("Failed to set up fan", zap.String("entry_id", e.ID), zap.Error(err))
		}
	}

	if settings.mqtt != nil {
		bridge, err := mqtt.Connect(*settings.mqtt, p, logging.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("failed to start MQTT bridge: %w", err)
		}
		defer func() {
			if err := bridge.Close(); err != nil {
				log.Warn("MQTT bridge did not close cleanly", zap.Error(err))
			}
		}()
	}

	scheduler := platform.NewScheduler(p, settings.interval, logging.Named("scheduler"))
	go scheduler.Run(ctx)

	srv := server.New(&server.Config{Listen: settings.listen}, p, metrics.NewRegistry(p), logging.Named("server"))

	listener, err := net.Listen("tcp", settings.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", settings.listen, err)
	}

	if advertise {
		port, err := discovery.PortOf(listener.Addr())
		if err != nil {
			_ = listener.Close()
			return err
		}
		adv, err := discovery.Advertise(discovery.Announcement{
			Instance: advertiseAs,
			Port:     port,
			Text:     discovery.TXTRecords(version.Version, len(entries)),
		}, logging.Named("mdns"))
		if err != nil {
			log.Warn("Bridge will not be advertised", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	log.Info("Bridge started",
		zap.Int("fans", len(entries)),
		zap.String("listen", listener.Addr().String()),
		zap.Duration("poll_interval", scheduler.Interval()),
		zap.Bool("mqtt", settings.mqtt != nil),
	)

	if err := srv.Serve(ctx, listener); err != nil {
		return err
	}

	log.Info("Bridge stopped")
	return nil
}

// Compile-time checks that the platform satisfies the consumers it is
// handed to.
var (
	_ server.Controller = (*platform.Platform)(nil)
	_ mqtt.Controller   = (*platform.Platform)(nil)
	_ metrics.Source    = (*platform.Platform)(nil)
)
