// Package main is the entry point for the ChromaDMX daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucsky/cuid"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/bluetooth"

	"github.com/chromadmx/chromadmx/internal/beatclock"
	"github.com/chromadmx/chromadmx/internal/ble"
	"github.com/chromadmx/chromadmx/internal/config"
	"github.com/chromadmx/chromadmx/internal/controlapi"
	"github.com/chromadmx/chromadmx/internal/discovery"
	"github.com/chromadmx/chromadmx/internal/dmxout"
	"github.com/chromadmx/chromadmx/internal/dmxpipeline"
	"github.com/chromadmx/chromadmx/internal/effects"
	"github.com/chromadmx/chromadmx/internal/fixture"
	"github.com/chromadmx/chromadmx/internal/router"
	"github.com/chromadmx/chromadmx/internal/transport"
	"github.com/chromadmx/chromadmx/internal/udpsock"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	fixtures, positions, err := buildFixtureLayout(cfg)
	if err != nil {
		log.Fatalf("Failed to build fixture layout: %v", err)
	}

	sendSock, err := udpsock.Listen("0.0.0.0:0")
	if err != nil {
		log.Fatalf("Failed to open output socket: %v", err)
	}
	defer sendSock.Close()

	recvSock, err := udpsock.Listen(fmt.Sprintf("0.0.0.0:%d", cfg.ArtNetPort))
	if err != nil {
		log.Fatalf("Failed to open discovery socket: %v", err)
	}
	defer recvSock.Close()

	artNetDest, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", cfg.ArtNetBroadcast, cfg.ArtNetPort))
	if err != nil {
		log.Fatalf("Failed to resolve Art-Net broadcast address: %v", err)
	}

	protocol := dmxout.ProtocolArtNet
	if cfg.DMXProtocol == "sacn" {
		protocol = dmxout.ProtocolSACN
	}
	outCfg := dmxout.DefaultConfig()
	outCfg.FrameRateHz = cfg.DMXOutputRateHz
	outCfg.Protocol = protocol
	outCfg.ArtNetDest = artNetDest
	outCfg.SACNSourceName = "ChromaDMX"
	outCfg.SACNPriority = byte(cfg.SACNPriority)
	out := dmxout.New(outCfg, sendSock)

	discCfg := discovery.Config{
		PollIntervalMs: cfg.DiscoveryPollIntervalMs,
		NodeTimeoutMs:  cfg.DiscoveryNodeTimeoutMs,
		MaxNodes:       cfg.DiscoveryMaxNodes,
		BroadcastAddr:  fmt.Sprintf("%s:%d", cfg.ArtNetBroadcast, cfg.ArtNetPort),
	}
	disc := discovery.New(discCfg, sendSock, recvSock)

	real := transport.NewDMXTransport(out, disc)
	sim := transport.NewSimulatedTransport()

	initialMode := routerModeFromConfig(cfg.TransportMode)
	transportRouter := router.New(real, sim, initialMode)

	tap := beatclock.NewTapClock()
	mesh := beatclock.NewMeshClock(beatclock.StandaloneSession{})
	beat := beatclock.NewComposite(tap, mesh)

	engine := effects.NewEngine(positions, beat.State, cfg.EngineRenderRateHz)

	sink := transport.NewRouterSink(transportRouter)
	pipeline := dmxpipeline.New(
		func() []fixture.Fixture { return fixtures },
		engine.ReadSlot,
		sink,
		cfg.DMXOutputRateHz,
	)

	// The provisioning machine is driven on demand (e.g. by a setup
	// tool invoking Provision with a scanned device ID); it runs no
	// loop of its own, so it's constructed here and handed off rather
	// than started/stopped alongside the dataplane.
	bleDevice := ble.NewAdapterDevice(bluetooth.DefaultAdapter)
	bleMachine := ble.NewMachine(bleDevice)
	log.Printf("BLE provisioning ready (state=%s)", bleMachine.State())

	api := controlapi.New(engine, beat, disc, transportRouter, cfg.CORSOrigin)

	group, ctx := errgroup.WithContext(context.Background())

	beat.Start()
	engine.Start()
	pipeline.Start()
	if err := real.Start(); err != nil {
		log.Printf("Warning: real transport failed to start: %v", err)
	}
	if err := sim.Start(); err != nil {
		log.Printf("Warning: simulated transport failed to start: %v", err)
	}
	api.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group.Go(func() error {
		log.Printf("ChromaDMX control API listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("control API server error: %w", err)
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Println("Shutting down...")
	case <-ctx.Done():
		log.Printf("Shutting down after error: %v", ctx.Err())
	}

	api.Stop()
	pipeline.Stop()
	engine.Stop()
	beat.Stop()
	real.Stop()
	sim.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := group.Wait(); err != nil {
		log.Fatalf("ChromaDMX exited with error: %v", err)
	}
	log.Println("ChromaDMX stopped")
}

// buildFixtureLayout lays out cfg.FixtureCount fixtures of
// cfg.FixtureProfileID in a straight line along X, spaced
// cfg.FixtureSpacingM apart, consecutively addressed from
// cfg.FixtureChannelStart in cfg.FixtureUniverse. There is no
// persistence layer in this core to load a real layout from; a
// collaborator-owned UI is expected to replace this via the control
// API in a future iteration.
func buildFixtureLayout(cfg *config.Config) ([]fixture.Fixture, []effects.FixturePosition, error) {
	profiles := fixture.LoadBuiltinProfiles()
	var profile fixture.FixtureProfile
	found := false
	for _, p := range profiles {
		if p.ID == cfg.FixtureProfileID {
			profile = p
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("fixture profile %q not found in built-in table", cfg.FixtureProfileID)
	}

	fixtures := make([]fixture.Fixture, 0, cfg.FixtureCount)
	positions := make([]effects.FixturePosition, 0, cfg.FixtureCount)

	channelStart := cfg.FixtureChannelStart
	for i := 0; i < cfg.FixtureCount; i++ {
		if channelStart+profile.ChannelCount()-1 > dmxout.UniverseSize {
			break
		}
		f := fixture.NewFixture(
			cuid.New(),
			fmt.Sprintf("%s %d", profile.Name, i+1),
			channelStart,
			profile.ChannelCount(),
			cfg.FixtureUniverse,
			profile.ID,
		)
		fixtures = append(fixtures, f)
		positions = append(positions, effects.FixturePosition{
			Position:       effects.Vec3{X: float64(i) * cfg.FixtureSpacingM, Y: 0, Z: 0},
			PixelIndexHint: i,
		})
		channelStart += profile.ChannelCount()
	}

	return fixtures, positions, nil
}

func routerModeFromConfig(mode string) router.Mode {
	switch mode {
	case "simulated":
		return router.ModeSimulated
	case "mixed":
		return router.ModeMixed
	default:
		return router.ModeReal
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  ChromaDMX")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment:    %s\n", cfg.Env)
	fmt.Printf("  Port:           %s\n", cfg.Port)
	fmt.Printf("  DMX protocol:   %s @ %dHz\n", cfg.DMXProtocol, cfg.DMXOutputRateHz)
	fmt.Printf("  Transport mode: %s\n", cfg.TransportMode)
	fmt.Println("============================================")
}
