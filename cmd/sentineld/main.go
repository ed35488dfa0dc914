// Command sentineld polls the PIR and battery sensors, drives the relay
// channels according to the active mode, and publishes state changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/config"
	"github.com/hallam/sentinel/internal/control"
	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/ina219"
	"github.com/hallam/sentinel/internal/logging"
	"github.com/hallam/sentinel/internal/monitor"
	"github.com/hallam/sentinel/internal/mqtt"
	"github.com/hallam/sentinel/internal/status"
	"github.com/hallam/sentinel/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/sentinel/config.yaml", "Path to YAML configuration")
	printState := flag.Bool("print-state", false, "Read the sensors once, print, and exit")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Status heartbeat interval (0 to disable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentineld: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentineld: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *printState, *heartbeat); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger, printState bool, heartbeat time.Duration) error {
	// Hardware first: nothing else is worth starting if the pins are taken.
	pir, err := gpio.NewRealSource(cfg.Motion.Pin, cfg.Motion.ActiveHigh)
	if err != nil {
		return fmt.Errorf("init motion sensor: %w", err)
	}
	defer pir.Close()

	sensor, err := ina219.NewRealSource(cfg.Power.Bus, cfg.Power.Address,
		cfg.Power.ShuntOhms, cfg.Power.MaxCurrent)
	if err != nil {
		return fmt.Errorf("init battery sensor: %w", err)
	}
	defer sensor.Close()

	breakpoints, err := cfg.Power.BreakpointTable()
	if err != nil {
		return err
	}

	if printState {
		return printOnce(pir, sensor, cfg)
	}

	pins := make(map[int]gpio.RelayPin, len(cfg.Relays))
	for _, r := range cfg.Relays {
		pins[r.Channel] = gpio.RelayPin{Pin: r.Pin, ActiveLow: r.ActiveLow}
	}
	relay, err := gpio.NewRealRelay(pins)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relay.Close()

	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if cfg.MQTT.Enabled {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = real
		connStatus = real
		defer publisher.Close()
	} else {
		publisher = mqtt.NewFakePublisher()
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		MotionIntervalMs: cfg.Motion.IntervalMs,
		PowerIntervalMs:  cfg.Power.IntervalMs,
		CooldownS:        cfg.Control.CooldownS,
		Broker:           cfg.MQTT.Broker,
		HTTPPort:         cfg.HTTP.Addr,
	})

	hist := history.New(cfg.History.Capacity)

	ctrl := control.New(control.Config{
		AutoEnabled:    cfg.Control.AutoEnabled,
		TimerEnabled:   cfg.Control.TimerEnabled,
		TriggerChannel: cfg.Control.TriggerChannel,
		AutoDelay:      cfg.AutoDelay(),
		Cooldown:       cfg.Cooldown(),
		TimerDuration:  cfg.TimerDuration(),
		PulseDuration:  cfg.PulseDuration(),
	}, relay, logger.Named("control"))
	defer ctrl.Close()

	initialMode := control.ModeManual
	if cfg.Control.AutoEnabled {
		initialMode = control.ModeAuto
	}
	if err := ctrl.SetMode(initialMode); err != nil {
		return err
	}
	tracker.SetMode(string(initialMode))

	sink := monitor.MultiSink{ctrl, mqtt.NewSink(publisher, logger.Named("mqtt"))}

	motion := monitor.NewMotion(monitor.MotionConfig{
		Source:   pir,
		Sink:     sink,
		History:  hist,
		Interval: cfg.MotionInterval(),
		Logger:   logger.Named("motion"),
	})
	power := monitor.NewPower(monitor.PowerConfig{
		Source:        sensor,
		Sink:          sink,
		History:       hist,
		Interval:      cfg.PowerInterval(),
		Logger:        logger.Named("power"),
		Breakpoints:   breakpoints,
		MinVoltage:    cfg.Power.MinVoltage,
		MaxVoltage:    cfg.Power.MaxVoltage,
		CapacityAh:    cfg.Power.CapacityAh,
		EnableRuntime: cfg.Power.EnableRuntime,
	})

	// Publish startup event with full status snapshot.
	refreshTracker(tracker, motion, power, relay, ctrl, connStatus)
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn("failed to publish startup event", zap.Error(err))
	}

	motion.Start()
	power.Start()
	tracker.SetMonitoring(true)
	defer func() {
		motion.Stop()
		power.Stop()
	}()

	if cfg.HTTP.Enabled {
		srv := web.New(cfg.HTTP.Addr, tracker, hist, ctrl, logger.Named("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	logger.Info("started",
		zap.Duration("motion_interval", cfg.MotionInterval()),
		zap.Duration("power_interval", cfg.PowerInterval()),
		zap.String("mode", string(initialMode)),
		zap.String("broker", cfg.MQTT.Broker))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	var hbC <-chan time.Time
	if heartbeat > 0 {
		hb := time.NewTicker(heartbeat)
		defer hb.Stop()
		hbC = hb.C
	}

	for {
		select {
		case <-refresh.C:
			refreshTracker(tracker, motion, power, relay, ctrl, connStatus)

		case <-hbC:
			refreshTracker(tracker, motion, power, relay, ctrl, connStatus)
			snap := tracker.Snapshot()
			hb := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hb); err != nil {
				logger.Warn("heartbeat publish failed", zap.Error(err))
			}

		case s := <-sigCh:
			logger.Info("shutting down", zap.String("signal", s.String()))
			reason := "UNKNOWN"
			switch s {
			case syscall.SIGINT:
				reason = "SIGINT"
			case syscall.SIGTERM:
				reason = "SIGTERM"
			}

			// Monitors first so no trigger fires mid-shutdown, then the
			// controller so no armed timer fires into a closed relay.
			motion.Stop()
			power.Stop()
			tracker.SetMonitoring(false)
			ctrl.Close()

			refreshTracker(tracker, motion, power, relay, ctrl, connStatus)
			snap := tracker.Snapshot()
			shutdown := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := publisher.PublishSystem(shutdown); err != nil {
				logger.Warn("failed to publish shutdown event", zap.Error(err))
			}
			// Deferred closes turn the relays off and release hardware.
			return nil
		}
	}
}

// refreshTracker copies live monitor, relay, and connection state into the
// tracker for HTTP and system-event consumers.
func refreshTracker(tracker *status.Tracker, motion *monitor.Motion, power *monitor.Power,
	relay gpio.Relay, ctrl *control.Controller, conn mqtt.ConnectionStatus) {

	ms := motion.Status()
	tracker.UpdateMotion(status.MotionInfo{
		State:        ms.State,
		Triggers:     ms.Triggers,
		ReadFailures: ms.ReadFailures,
	})

	ps := power.Status()
	tracker.UpdatePower(status.PowerInfo{
		Battery:      ps.Battery,
		Voltage:      ps.Voltage,
		Current:      ps.Current,
		Power:        ps.Power,
		Percentage:   ps.Percentage,
		Charging:     ps.Charging,
		RuntimeMin:   ps.RuntimeMin,
		HasRuntime:   ps.HasRuntime,
		Connected:    ps.Connected,
		ReadFailures: ps.ReadFailures,
	})

	relays := make([]status.RelayInfo, 0, len(relay.Channels()))
	for _, id := range relay.Channels() {
		st, err := relay.State(id)
		if err != nil {
			continue
		}
		relays = append(relays, status.RelayInfo{
			Channel:       id,
			On:            st.On,
			LastTriggered: st.LastTriggered,
		})
	}
	tracker.UpdateRelays(relays)

	tracker.SetMode(string(ctrl.Mode()))
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
}

// printOnce reads both sensors a single time and prints a short summary.
func printOnce(pir gpio.Source, sensor ina219.Source, cfg config.Config) error {
	active, err := pir.Read()
	if err != nil {
		return fmt.Errorf("read motion sensor: %w", err)
	}
	motionState := "CLEAR"
	if active {
		motionState = "ACTIVE"
	}

	reading, err := sensor.ReadAll()
	if err != nil {
		return fmt.Errorf("read battery sensor: %w", err)
	}
	breakpoints, err := cfg.Power.BreakpointTable()
	if err != nil {
		return err
	}

	fmt.Printf("Motion: %s\n", motionState)
	fmt.Printf("Battery: %s %.2fV %.3fA %.2fW\n",
		breakpoints.Classify(reading.Voltage), reading.Voltage, reading.Current, reading.Power)
	return nil
}
