package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"

	"wallpanel/pkg/config"
	"wallpanel/pkg/mqttbridge"
	"wallpanel/pkg/server"
	"wallpanel/pkg/simulator"
	"wallpanel/pkg/store"
	"wallpanel/pkg/wallpanel"
	"wallpanel/templates"
)

func setupLogging(c *cli.Context, cfg config.LoggingConfig) error {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
		return nil
	}
	if cfg.Level == "" {
		return nil
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}
	log.SetLevel(level)
	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %v", err)
	}
	if err := setupLogging(c, cfg.Logging); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func buildRegistry(configs []wallpanel.DeviceConfig) (*wallpanel.Registry, error) {
	registry := wallpanel.NewRegistry()
	for _, cfg := range configs {
		d, err := wallpanel.NewDevice(cfg, log.WithField("device", cfg.Address()))
		if err != nil {
			return nil, fmt.Errorf("failed to create device %s: %v", cfg.Address(), err)
		}
		id := registry.Add(d)
		log.Infof("Registered %s at %s", id, d.BaseURL())
	}
	return registry, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.HTTP.Port = c.Int("port")
	}
	dbPath := cfg.Database.Path
	if c.IsSet("db") {
		dbPath = c.String("db")
	}

	log.Info("WallPanel Server")

	tmpl, err := templates.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %v", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	st, err := store.NewStore(db, cfg.Devices, log.WithField("component", "store"))
	if err != nil {
		return fmt.Errorf("failed to create store: %v", err)
	}

	devices, err := st.Devices()
	if err != nil {
		return fmt.Errorf("failed to read devices: %v", err)
	}

	registry, err := buildRegistry(devices)
	if err != nil {
		return err
	}
	router := wallpanel.NewRouter(registry, log.WithField("component", "router"))
	poller := wallpanel.NewPoller(registry, time.Duration(cfg.PollInterval), log.WithField("component", "poller"))

	hub := server.NewHub(log.WithField("component", "websocket"))
	poller.AddListener(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.MQTT.Enabled {
		bridge := mqttbridge.New(router, mqttbridge.Config{
			Broker:    cfg.MQTT.Broker,
			ClientID:  cfg.MQTT.ClientID,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			TopicRoot: cfg.MQTT.TopicRoot,
			QoS:       cfg.MQTT.QoS,
		}, log.WithField("component", "mqtt"))

		client, err := bridge.Connect()
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		poller.AddListener(bridge)

		wg.Add(1)
		go func() {
			defer wg.Done()
			bridge.Run(ctx)
			log.Debug("MQTT bridge stopped")
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           server.NewServer(registry, router, st, tmpl, hub, log.WithField("component", "http")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	err = server.RunServer(ctx, srv, log.WithField("component", "http"))
	stop()
	wg.Wait()
	if err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}

// targetDevice builds the device named by the --host, --port and --name flags.
func targetDevice(c *cli.Context) (*wallpanel.Device, error) {
	cfg := wallpanel.DeviceConfig{
		Name: c.String("name"),
		Host: c.String("host"),
		Port: c.Int("device-port"),
	}
	return wallpanel.NewDevice(cfg, log.WithField("device", cfg.Host))
}

func state(c *cli.Context) error {
	if err := setupLogging(c, config.LoggingConfig{}); err != nil {
		return err
	}

	d, err := targetDevice(c)
	if err != nil {
		return err
	}
	if !d.Refresh(c.Context) {
		return cli.Exit(fmt.Sprintf("failed to read state from %s", d.BaseURL()), 1)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Snapshot())
}

func runCommand(send func(ctx context.Context, d *wallpanel.Device, arg string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := setupLogging(c, config.LoggingConfig{}); err != nil {
			return err
		}

		d, err := targetDevice(c)
		if err != nil {
			return err
		}
		if err := send(c.Context, d, c.Args().First()); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintln(c.App.Writer, "OK")
		return nil
	}
}

func simulate(c *cli.Context) error {
	if err := setupLogging(c, config.LoggingConfig{}); err != nil {
		return err
	}

	panel := simulator.NewPanel(c.String("start-url"), log.WithField("component", "simulator"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Int("device-port")),
		Handler:           panel,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.RunServer(ctx, srv, log.WithField("component", "simulator"))
}

func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "host",
			Usage:    "Panel host name or address",
			Required: true,
			EnvVars:  []string{"WALLPANEL_HOST"},
		},
		&cli.IntFlag{
			Name:    "device-port",
			Usage:   "Panel API port",
			Value:   wallpanel.DefaultPort,
			EnvVars: []string{"WALLPANEL_DEVICE_PORT"},
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Panel name",
			Value: wallpanel.DefaultName,
		},
	}
}

func commandWithArg(name, usage, argName string, send func(ctx context.Context, d *wallpanel.Device, arg string) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<" + argName + ">",
		Before: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit(fmt.Sprintf("%s expects exactly one argument: %s", name, argName), 2)
			}
			return nil
		},
		Action: runCommand(send),
	}
}

func main() {
	app := cli.App{
		Name:  "wallpanel",
		Usage: "WallPanel display adapter",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Poll the configured panels and serve the API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML config file",
						Value:   "wallpanel.yaml",
						EnvVars: []string{"WALLPANEL_CONFIG"},
					},
					&cli.StringFlag{
						Name:    "db",
						Usage:   "Path to the device database",
						EnvVars: []string{"WALLPANEL_DB"},
					},
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to listen on",
						Value:   8090,
						EnvVars: []string{"WALLPANEL_PORT"},
					},
				},
				Action: serve,
			},
			{
				Name:   "state",
				Usage:  "Print the current state of a panel",
				Flags:  deviceFlags(),
				Action: state,
			},
			{
				Name:  "command",
				Usage: "Send a command to a panel",
				Flags: deviceFlags(),
				Subcommands: []*cli.Command{
					{
						Name:  "relaunch",
						Usage: "Load the start URL",
						Action: runCommand(func(ctx context.Context, d *wallpanel.Device, _ string) error {
							return d.LoadStartURL(ctx)
						}),
					},
					commandWithArg("load-url", "Load a URL", "url", func(ctx context.Context, d *wallpanel.Device, arg string) error {
						return d.LoadURL(ctx, arg)
					}),
					commandWithArg("brightness", "Set the screen brightness (0-255)", "level", func(ctx context.Context, d *wallpanel.Device, arg string) error {
						level, err := strconv.Atoi(arg)
						if err != nil || level < 0 || level > 255 {
							return fmt.Errorf("%w: brightness must be 0-255, got %q", wallpanel.ErrInvalidCall, arg)
						}
						return d.SetBrightness(ctx, level)
					}),
					commandWithArg("sound", "Play an audio URL", "url", func(ctx context.Context, d *wallpanel.Device, arg string) error {
						return d.PlaySound(ctx, arg)
					}),
					commandWithArg("say", "Speak a message", "message", func(ctx context.Context, d *wallpanel.Device, arg string) error {
						return d.Speak(ctx, arg)
					}),
				},
			},
			{
				Name:  "simulate",
				Usage: "Run a simulated panel",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "device-port",
						Usage: "Port to serve the panel API on",
						Value: wallpanel.DefaultPort,
					},
					&cli.StringFlag{
						Name:  "start-url",
						Usage: "Start URL loaded on relaunch",
						Value: simulator.DefaultStartURL,
					},
				},
				Action: simulate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
