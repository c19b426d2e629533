// Command hapsim runs the moving-relay scenario: a platform circling
// above two ground terminals, steering one directional beam per band
// while relaying traffic between them, with per-flow loss accounting.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/hapnet-simulator/core"
	"github.com/signalsfoundry/hapnet-simulator/diag"
	"github.com/signalsfoundry/hapnet-simulator/internal/config"
	"github.com/signalsfoundry/hapnet-simulator/internal/logging"
	"github.com/signalsfoundry/hapnet-simulator/internal/observability"
	"github.com/signalsfoundry/hapnet-simulator/internal/store"
	"github.com/signalsfoundry/hapnet-simulator/kb"
	"github.com/signalsfoundry/hapnet-simulator/model"
	"github.com/signalsfoundry/hapnet-simulator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	scenarioPath := flag.String("scenario", "", "JSON scenario file (overrides the built-in topology)")

	altitude := flag.Float64("altitude", -1, "platform altitude (m)")
	orbitRadius := flag.Float64("orbit-radius", -1, "circular trajectory radius (m)")
	orbitalPeriod := flag.Duration("orbital-period", 0, "time for one full circle")
	antGain := flag.Float64("ant-gain", math.NaN(), "directional antenna max gain (dBi)")
	beamExponent := flag.Float64("beam-exponent", math.NaN(), "antenna beamwidth exponent")
	txPower := flag.Float64("tx-power", math.NaN(), "transmit power (dBm)")
	groundDistance := flag.Float64("ground-distance", -1, "distance between ground terminals (m)")
	numPackets := flag.Int("num-packets", -1, "number of packets to generate")
	packetSize := flag.Int("packet-size", -1, "application packet size (bytes)")
	interval := flag.Duration("interval", 0, "inter-packet interval")
	stopAfter := flag.Duration("stop-after", 0, "simulation stop time")
	metricsAddr := flag.String("metrics-addr", "", "address for the Prometheus /metrics endpoint")
	resultsDB := flag.String("results-db", "", "SQLite file to persist run results into")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *altitude, *orbitRadius, *orbitalPeriod, *antGain, *beamExponent,
		*txPower, *groundDistance, *numPackets, *packetSize, *interval, *stopAfter, *metricsAddr, *resultsDB)

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Run.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Run.MetricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics endpoint stopped", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "metrics endpoint up", logging.String("addr", cfg.Run.MetricsAddr))
	}

	if err := run(ctx, cfg, *scenarioPath, log, collector); err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, scenarioPath string, log logging.Logger, collector *observability.SimCollector) error {
	tracer := otel.Tracer("hapsim")
	ctx, span := tracer.Start(ctx, "simulation.run")
	defer span.End()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sched := timectrl.NewScheduler(start)
	kbase := kb.NewKnowledgeBase()

	var engines []*core.BeamSteeringEngine
	var ifaces []*core.RadioInterface
	var sink core.Sink
	budgets := budgetRows(cfg)

	if scenarioPath != "" {
		f, err := os.Open(scenarioPath)
		if err != nil {
			return fmt.Errorf("open scenario: %w", err)
		}
		defer f.Close()
		scenario, err := core.LoadScenario(kbase, sched, log, f)
		if err != nil {
			return err
		}
		engines = scenario.Engines
		ifaces = kbase.ListInterfaces()
		for _, tr := range scenario.Traffic {
			tr.Gen.Start(start.Add(tr.StartOffset))
		}
		log.Info(ctx, "scenario loaded",
			logging.Int("platforms", len(scenario.PlatformIDs)),
			logging.Int("channels", len(scenario.ChannelNames)),
			logging.Int("interfaces", len(scenario.InterfaceIDs)),
			logging.Int("traffic_flows", len(scenario.Traffic)),
		)
	} else {
		var err error
		engines, ifaces, err = buildRelayTopology(cfg, sched, kbase, log, &sink)
		if err != nil {
			return err
		}
	}

	printBudgets(os.Stdout, budgets)

	registry := diag.NewEndpointRegistry(ifaces)
	accountant := diag.NewFlowAccountant(registry)
	meter := &meteredObserver{registry: registry, collector: collector}
	for _, ri := range ifaces {
		ri.Subscribe(accountant)
		ri.Subscribe(meter)
	}

	// Platform positions flow through the knowledge base so any number
	// of consumers can watch them; the collector is the first.
	kbase.Subscribe(func(ev kb.Event) {
		if ev.Type != kb.EventPlatformUpdated {
			return
		}
		c := ev.Platform.Coordinates
		collector.ObservePlatformPosition(ev.Platform.ID, c.X, c.Y, c.Z)
	})

	for _, e := range engines {
		e := e
		e.OnPosition = func(pos core.Vec3) {
			if err := kbase.UpdatePlatformPosition(e.PlatformID(), model.Motion{X: pos.X, Y: pos.Y, Z: pos.Z}); err != nil {
				log.Warn(ctx, "position publish failed", logging.String("error", err.Error()))
			}
		}
		prev := e.OnGain
		e.OnGain = func(link string, offsetRad, gainDB float64) {
			collector.SteeringTicks.Inc()
			collector.ObserveBeam(link, offsetRad*180/math.Pi, gainDB)
			if prev != nil {
				prev(link, offsetRad, gainDB)
			}
		}
		e.Start()
	}

	log.Info(ctx, "simulation starting",
		logging.Any("stop_after", cfg.Run.StopAfter),
		logging.Int("packets", cfg.Traffic.PacketCount),
	)
	sched.Run(start.Add(cfg.Run.StopAfter))
	collector.SimTimeSeconds.Set(sched.Now().Sub(start).Seconds())

	for _, e := range engines {
		e.Stop()
	}

	reports := accountant.Report()
	fmt.Println()
	diag.WriteTable(os.Stdout, reports)
	if scenarioPath == "" {
		fmt.Printf("\nApplication frames delivered end-to-end: %d (%d bytes)\n", sink.Received, sink.Bytes)
	}

	if cfg.Run.ResultsDB != "" {
		rs, err := store.Open(cfg.Run.ResultsDB)
		if err != nil {
			return err
		}
		defer rs.Close()
		runID, err := rs.SaveRun(start, "hapsim", reports, budgets)
		if err != nil {
			return err
		}
		log.Info(ctx, "results persisted",
			logging.String("db", cfg.Run.ResultsDB),
			logging.Any("run_id", runID),
		)
	}
	return nil
}

// buildRelayTopology assembles the canonical dual-band topology: ground
// terminal A and B on either side of the trajectory centre, the platform
// circling above with one steered interface per band, relaying A's
// traffic to B.
func buildRelayTopology(cfg *config.Config, sched *timectrl.Scheduler, kbase *kb.KnowledgeBase, log logging.Logger, sink *core.Sink) ([]*core.BeamSteeringEngine, []*core.RadioInterface, error) {
	atmo := core.Atmosphere{
		RainDBPerKm:               cfg.Atmosphere.RainDBPerKm,
		OxygenDBPerKm:             cfg.Atmosphere.OxygenDBPerKm,
		VaporDBPerKm:              cfg.Atmosphere.VaporDBPerKm,
		RainLayerHeightM:          cfg.Atmosphere.RainLayerHeightM,
		DenseAtmosphereThicknessM: cfg.Atmosphere.DenseAtmosphereThicknessM,
	}
	groundLoss := atmo.LossBelow(cfg.Platform.AltitudeM)

	hap := &model.PlatformDefinition{
		ID:   "hap1",
		Name: "HAP-1",
		Type: "HAP",
		Coordinates: model.Motion{
			X: cfg.Platform.OrbitRadiusM, Y: 0, Z: cfg.Platform.AltitudeM,
		},
		MotionSource: model.MotionSourceCircular,
		Trajectory: model.CircularTrajectory{
			Center:          model.Motion{X: 0, Y: 0, Z: cfg.Platform.AltitudeM},
			RadiusM:         cfg.Platform.OrbitRadiusM,
			AngularVelocity: 2 * math.Pi / cfg.Platform.OrbitalPeriod.Seconds(),
			AltitudeM:       cfg.Platform.AltitudeM,
		},
	}
	gtA := &model.PlatformDefinition{
		ID: "gt-a", Name: "Ground-A", Type: "GROUND_TERMINAL",
		Coordinates: model.Motion{X: -cfg.Platform.GroundDistanceM / 2},
	}
	gtB := &model.PlatformDefinition{
		ID: "gt-b", Name: "Ground-B", Type: "GROUND_TERMINAL",
		Coordinates: model.Motion{X: cfg.Platform.GroundDistanceM / 2},
	}
	for _, p := range []*model.PlatformDefinition{hap, gtA, gtB} {
		if err := kbase.AddPlatform(p); err != nil {
			return nil, nil, err
		}
	}

	chanA := core.NewRadioChannel("net-a", cfg.Radio.FrequencyAHz, sched)
	chanA.PathLossExponent = cfg.Radio.PathLossExponent
	chanA.RxSensitivityDBm = cfg.Radio.RxSensitivityDBm
	chanA.SetReferenceLossDB(core.ReferenceLossDB(cfg.Radio.ReferenceLossADB, groundLoss))

	chanB := core.NewRadioChannel("net-b", cfg.Radio.FrequencyBHz, sched)
	chanB.PathLossExponent = cfg.Radio.PathLossExponent
	chanB.RxSensitivityDBm = cfg.Radio.RxSensitivityDBm
	chanB.SetReferenceLossDB(core.ReferenceLossDB(cfg.Radio.ReferenceLossBDB, groundLoss))

	for _, c := range []*core.RadioChannel{chanA, chanB} {
		if err := kbase.AddChannel(c); err != nil {
			return nil, nil, err
		}
	}

	pos := func(p *model.PlatformDefinition) func() core.Vec3 {
		return func() core.Vec3 {
			return core.Vec3{X: p.Coordinates.X, Y: p.Coordinates.Y, Z: p.Coordinates.Z}
		}
	}

	hapA := &core.RadioInterface{
		ID: "hap1-a", Addr: "00:00:00:00:00:01", EndpointID: "hap1",
		TxPowerDBm: cfg.Radio.TxPowerDBm, Position: pos(hap),
	}
	termA := &core.RadioInterface{
		ID: "gt-a-0", Addr: "00:00:00:00:00:02", EndpointID: "gt-a",
		TxPowerDBm: cfg.Radio.TxPowerDBm, Position: pos(gtA),
	}
	hapB := &core.RadioInterface{
		ID: "hap1-b", Addr: "00:00:00:00:00:03", EndpointID: "hap1",
		TxPowerDBm: cfg.Radio.TxPowerDBm, Position: pos(hap),
	}
	termB := &core.RadioInterface{
		ID: "gt-b-0", Addr: "00:00:00:00:00:04", EndpointID: "gt-b",
		TxPowerDBm: cfg.Radio.TxPowerDBm, Position: pos(gtB),
	}
	chanA.Attach(hapA)
	chanA.Attach(termA)
	chanB.Attach(hapB)
	chanB.Attach(termB)

	// Ground terminals carry fixed high-gain dishes aimed at the
	// platform's station-keeping volume; only the platform side steers.
	termA.SetGainDB(cfg.Antenna.MaxGainDBi)
	termB.SetGainDB(cfg.Antenna.MaxGainDBi)

	ifaces := []*core.RadioInterface{hapA, termA, hapB, termB}
	for _, ri := range ifaces {
		if err := kbase.AddInterface(ri); err != nil {
			return nil, nil, err
		}
	}

	engine := core.NewBeamSteeringEngine(
		hap, &core.CircularMotionModel{}, core.PointAtCenter,
		cfg.Platform.SteeringTick, sched, log,
	)
	engine.AddLink(core.SteeredLink{
		Name:    "net-a",
		Target:  pos(gtA),
		Antenna: newAntenna(cfg),
		Port:    hapA,
	})
	engine.AddLink(core.SteeredLink{
		Name:    "net-b",
		Target:  pos(gtB),
		Antenna: newAntenna(cfg),
		Port:    hapB,
	})

	core.Relay{}.Bind(hapA, hapB, termB.Addr)
	sink.Install(termB)

	gen := core.NewTrafficGenerator(sched, termA, hapA.Addr,
		cfg.Traffic.PacketCount, cfg.Traffic.PacketSizeB, cfg.Traffic.PacketInterval)
	gen.Start(sched.Now().Add(cfg.Traffic.StartOffset))

	return []*core.BeamSteeringEngine{engine}, ifaces, nil
}

func newAntenna(cfg *config.Config) *core.CosineAntennaModel {
	a := core.NewCosineAntennaModel(cfg.Antenna.MaxGainDBi, cfg.Antenna.BeamwidthExponent)
	if cfg.Antenna.FloorGainDB != 0 {
		a.FloorGainDB = cfg.Antenna.FloorGainDB
	}
	return a
}

// budgetRows computes the static budgets reported for the run: the two
// ground legs and, when enabled, the platform-to-satellite leg.
func budgetRows(cfg *config.Config) []store.BudgetRow {
	atmo := core.Atmosphere{
		RainDBPerKm:               cfg.Atmosphere.RainDBPerKm,
		OxygenDBPerKm:             cfg.Atmosphere.OxygenDBPerKm,
		VaporDBPerKm:              cfg.Atmosphere.VaporDBPerKm,
		RainLayerHeightM:          cfg.Atmosphere.RainLayerHeightM,
		DenseAtmosphereThicknessM: cfg.Atmosphere.DenseAtmosphereThicknessM,
	}

	slant := math.Sqrt(cfg.Platform.AltitudeM*cfg.Platform.AltitudeM +
		(cfg.Platform.GroundDistanceM/2)*(cfg.Platform.GroundDistanceM/2))
	below := atmo.LossBelow(cfg.Platform.AltitudeM)

	rows := []store.BudgetRow{
		{
			Link: "ground-a",
			Budget: core.LinkBudgetParams{
				DistanceM:   slant,
				FrequencyHz: cfg.Radio.FrequencyAHz,
				TxPowerDBm:  cfg.Radio.TxPowerDBm,
				TxGainDBi:   cfg.Antenna.MaxGainDBi,
				RxGainDBi:   0,
				Atmospheric: below,
			}.Compute(),
		},
		{
			Link: "ground-b",
			Budget: core.LinkBudgetParams{
				DistanceM:   slant,
				FrequencyHz: cfg.Radio.FrequencyBHz,
				TxPowerDBm:  cfg.Radio.TxPowerDBm,
				TxGainDBi:   cfg.Antenna.MaxGainDBi,
				RxGainDBi:   0,
				Atmospheric: below,
			}.Compute(),
		},
	}

	if cfg.Satellite.Enabled {
		rows = append(rows, store.BudgetRow{
			Link: "satellite-downlink",
			Budget: core.LinkBudgetParams{
				DistanceM:   cfg.Satellite.DistanceM,
				FrequencyHz: cfg.Satellite.FrequencyHz,
				TxPowerDBm:  cfg.Satellite.TxPowerDBm,
				TxGainDBi:   cfg.Satellite.SatGainDBi,
				RxGainDBi:   cfg.Satellite.PlatformGainDBi,
				Atmospheric: atmo.LossAbove(cfg.Platform.AltitudeM),
			}.Compute(),
		})
	}
	return rows
}

func printBudgets(w *os.File, rows []store.BudgetRow) {
	fmt.Fprintln(w, "=== Link Budget ===")
	for _, r := range rows {
		fmt.Fprintf(w, "%s: FSPL=%.2f dB  atmospheric=%.2f dB  EIRP=%.2f dBW  received=%.2f dBW\n",
			r.Link, r.Budget.FSPLdB, r.Budget.AtmosphericDB, r.Budget.EIRPdBW, r.Budget.ReceivedPowerDBW)
	}
}

// meteredObserver mirrors frame events into Prometheus counters. It
// resolves addresses via the same registry as the accountant so the
// labels match the report.
type meteredObserver struct {
	registry  *diag.EndpointRegistry
	collector *observability.SimCollector
}

func (m *meteredObserver) TxBegin(iface *core.RadioInterface, f core.Frame, txPowerDBm float64) {
	dst, ok := m.registry.Resolve(f.Dst)
	if !ok {
		return
	}
	m.collector.FlowTxPackets.WithLabelValues(iface.EndpointID, string(dst)).Inc()
}

func (m *meteredObserver) RxEnd(iface *core.RadioInterface, f core.Frame) {
	if f.Dst != iface.Addr && !f.Dst.IsGroup() {
		return
	}
	src, ok := m.registry.Resolve(f.Src)
	if !ok {
		return
	}
	m.collector.FlowRxPackets.WithLabelValues(string(src), iface.EndpointID).Inc()
}

func (m *meteredObserver) RxDrop(iface *core.RadioInterface, f core.Frame, reason core.DropReason) {
	if !f.HeaderOK {
		return
	}
	src, ok := m.registry.Resolve(f.Src)
	if !ok {
		return
	}
	m.collector.FlowRxDropped.WithLabelValues(string(src), iface.EndpointID, diag.ReasonLabel(reason)).Inc()
}

func applyFlagOverrides(cfg *config.Config, altitude, orbitRadius float64, orbitalPeriod time.Duration,
	antGain, beamExponent, txPower, groundDistance float64, numPackets, packetSize int,
	interval, stopAfter time.Duration, metricsAddr, resultsDB string) {
	if altitude >= 0 {
		cfg.Platform.AltitudeM = altitude
	}
	if orbitRadius >= 0 {
		cfg.Platform.OrbitRadiusM = orbitRadius
	}
	if orbitalPeriod > 0 {
		cfg.Platform.OrbitalPeriod = orbitalPeriod
	}
	if !math.IsNaN(antGain) {
		cfg.Antenna.MaxGainDBi = antGain
	}
	if !math.IsNaN(beamExponent) {
		cfg.Antenna.BeamwidthExponent = beamExponent
	}
	if !math.IsNaN(txPower) {
		cfg.Radio.TxPowerDBm = txPower
	}
	if groundDistance >= 0 {
		cfg.Platform.GroundDistanceM = groundDistance
	}
	if numPackets >= 0 {
		cfg.Traffic.PacketCount = numPackets
	}
	if packetSize >= 0 {
		cfg.Traffic.PacketSizeB = packetSize
	}
	if interval > 0 {
		cfg.Traffic.PacketInterval = interval
	}
	if stopAfter > 0 {
		cfg.Run.StopAfter = stopAfter
	}
	if metricsAddr != "" {
		cfg.Run.MetricsAddr = metricsAddr
	}
	if resultsDB != "" {
		cfg.Run.ResultsDB = resultsDB
	}
}
