package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/printerctl/internal/config"
	"codeberg.org/mutker/printerctl/internal/errors"
	"codeberg.org/mutker/printerctl/internal/logger"
	"codeberg.org/mutker/printerctl/internal/marlin"
	"codeberg.org/mutker/printerctl/internal/pid"
	"codeberg.org/mutker/printerctl/internal/serialport"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if cfg.ListPorts {
		if err := listPorts(); err != nil {
			logger.Fatal().Err(err).Msg("failed to enumerate serial ports")
		}
		return
	}

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	name, err := resolvePort()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve printer port")
	}

	port, err := serialport.Open(name, cfg.Baud, cfg.ReadTimeoutDuration())
	if err != nil {
		logger.Fatal().Err(err).Str("port", name).Msg("failed to open printer port")
	}
	logger.Info().Str("port", name).Int("baud", cfg.Baud).Msg("Connected to printer")

	session := marlin.NewSession(port, marlin.WithAckTimeout(cfg.AckTimeoutDuration()))
	reader := port.NewReader(session)
	poller := marlin.NewPoller(session, reader, port,
		marlin.WithInterval(cfg.PollInterval()),
		marlin.WithOwnedTransport(),
	)

	if err := poller.Start(); err != nil {
		port.Close()
		logger.Fatal().Err(err).Msg("failed to start printer poller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	loop(ctx, session)

	poller.Stop()
	logger.Info().Msg("Exiting...")
}

func loop(ctx context.Context, session *marlin.Session) {
	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg.Monitor || cfg.Verbose || cfg.Debug {
				logPrinterState(session)
			}
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func resolvePort() (string, error) {
	errFactory := errors.New()

	if cfg.Port != "" {
		return cfg.Port, nil
	}

	criteria := serialport.Criteria{
		SerialNumber: cfg.SerialNumber,
		VID:          cfg.USBVid,
		PID:          cfg.USBPid,
		Product:      cfg.Product,
	}
	if criteria.IsEmpty() {
		return "", errFactory.WithMessage(errors.ErrMissingConfig,
			"no port given; set port or USB match criteria")
	}

	return serialport.Find(criteria)
}

func listPorts() error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}

	for _, p := range ports {
		serialport.Dump(os.Stdout, p)
	}

	return nil
}

func logPrinterState(session *marlin.Session) {
	event := logger.Info()

	for label, sample := range session.Temperatures() {
		event.Float64("temp_"+label, sample.Actual)
		if sample.Setpoint != nil {
			event.Float64("temp_"+label+"_setpoint", *sample.Setpoint)
		}
	}
	for label, sample := range session.Positions() {
		if sample.Value != nil {
			event.Float64("pos_"+label, *sample.Value)
		}
		if sample.Steps != nil {
			event.Float64("steps_"+label, *sample.Steps)
		}
	}

	event.Msg("")
}
