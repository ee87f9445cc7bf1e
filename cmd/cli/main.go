package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synctone"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

// Global flags
var (
	tempDir    string
	configPath string
	logFormat  string
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("ACOUSTIC_TEMP_DIR", "/tmp"), "Directory for recorded artifacts and conversions")
	flag.StringVar(&configPath, "config", getEnvOrDefault("ACOUSTIC_CONFIG", ""), "Path to a YAML session configuration")
	flag.StringVar(&logFormat, "log-format", getEnvOrDefault("ACOUSTIC_LOG_FORMAT", "text"), "Log output format: text or json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// sessionOptions builds options from the config file, if any, and the global
// flags. Flags win over the file.
func sessionOptions(log acousticsync.Logger) []acousticsync.Option {
	var opts []acousticsync.Option
	if configPath != "" {
		fc, err := acousticsync.LoadConfigFile(configPath)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, fc.Options()...)
	}
	return append(opts, acousticsync.WithTempDir(tempDir), acousticsync.WithLogger(log))
}

// newLogger returns the text logger or, with --log-format json, a zap logger.
func newLogger() (acousticsync.Logger, func()) {
	base := logger.GetLogger()
	if logFormat != "json" {
		return base, func() {}
	}
	z, err := logger.NewZap(base.Level())
	if err != nil {
		base.Warnf("Falling back to text logging: %v", err)
		return base, func() {}
	}
	return z, func() { _ = z.Sync() }
}

func main() {
	flag.Parse()
	args := flag.Args()

	// Print banner
	printBanner()

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	log, flush := newLogger()
	defer flush()

	command := args[0]
	log.Infof("Executing command: %s", command)

	switch command {
	case "align":
		handleAlign(log, args[1:])
	case "tone":
		handleTone(log, args[1:])
	case "inspect":
		handleInspect(log, args[1:])
	case "simulate":
		handleSimulate(log, args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
    _                      _   _      ____
   / \   ___ ___  _   _ ___| |_(_) ___/ ___| _   _ _ __   ___
  / _ \ / __/ _ \| | | / __| __| |/ __\___ \| | | | '_ \ / __|
 / ___ \ (_| (_) | |_| \__ \ |_| | (__ ___) | |_| | | | | (__
/_/   \_\___\___/ \__,_|___/\__|_|\___|____/ \__, |_| |_|\___|
                                             |___/
           Acoustic Stream Synchronization Tool
`
	fmt.Println(banner)
}

// splitArgs separates leading positional arguments from the flags after them.
func splitArgs(args []string, positional int) ([]string, []string) {
	var pos []string
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") || len(pos) == positional {
			return pos, args[i:]
		}
		pos = append(pos, arg)
	}
	return pos, nil
}

func handleAlign(log acousticsync.Logger, args []string) {
	files, flagArgs := splitArgs(args, 2)

	alignCmd := flag.NewFlagSet("align", flag.ExitOnError)
	duration := alignCmd.Duration("duration", 6*time.Second, "Length of audio to align")
	alignCmd.Parse(flagArgs)

	if len(files) != 2 {
		fmt.Println("Usage: acousticsync align <local_file> <remote_file> [--duration 6s]")
		os.Exit(1)
	}

	log.Infof("Aligning %s against %s over %v", files[0], files[1], *duration)
	local := &audio.FileSource{Path: files[0], Dir: tempDir}
	remote := &audio.FileSource{Path: files[1], Dir: tempDir}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("\n🎧 Aligning recordings...")
	opts := append(sessionOptions(log), acousticsync.WithManualDuration(*duration))
	m, err := acousticsync.AlignSources(ctx, local, remote, func(st align.State) {
		if st.Phase == align.Processing {
			fmt.Println("   Correlating")
		}
	}, opts...)
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if m.Phase == align.Failed {
		fmt.Printf("\n❌ Alignment failed: %v\n", m.Err)
		log.Errorf("Alignment failed: %v", m.Err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Alignment complete!")
	fmt.Printf("   Offset:      %.2f samples\n", m.OffsetSamples)
	fmt.Printf("   Offset:      %.5f s\n", m.Result)
	fmt.Printf("   Peak:        %.3f (threshold %.3f)\n", m.Correlation.PeakMagnitude, m.Analysis.ThresholdUp)
	if m.Valid() {
		fmt.Println("   Verdict:     isolated peak")
	} else {
		fmt.Println("   Verdict:     ⚠️  ambiguous peak, result may be wrong")
	}
	fmt.Printf("   Artifacts:   %s\n", m.ArtifactA.Path)
	fmt.Printf("                %s\n", m.ArtifactB.Path)
	log.Infof("Alignment result %.5fs (valid=%v)", m.Result, m.Valid())
}

func handleTone(log acousticsync.Logger, args []string) {
	toneCmd := flag.NewFlagSet("tone", flag.ExitOnError)
	out := toneCmd.String("out", "synctone.wav", "Output WAV file")
	seconds := toneCmd.Float64("seconds", synctone.DefaultSeconds, "Tone length in seconds")
	rate := toneCmd.Int("rate", 48000, "Sample rate")
	toneCmd.Parse(args)

	samples := synctone.Generate(*rate, *seconds)
	if len(samples) == 0 {
		fmt.Println("Error: --seconds and --rate must be positive")
		os.Exit(1)
	}
	if err := audio.WriteWAV(*out, samples, *rate); err != nil {
		fmt.Printf("❌ Failed to write tone: %v\n", err)
		log.Errorf("WriteWAV failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Wrote %.1fs sync tone to %s\n", *seconds, *out)
	fmt.Printf("   Rate:    %d Hz\n", *rate)
	fmt.Printf("   Carrier: %.0f Hz ± %.0f Hz\n", synctone.CarrierHz, synctone.DeviationHz)
	log.Infof("Wrote sync tone: %s", *out)
}

func handleInspect(log acousticsync.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: acousticsync inspect <file>")
		os.Exit(1)
	}
	path := args[0]

	samples, format, err := audio.ReadWAV(path)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", path, err)
		log.Errorf("ReadWAV failed: %v", err)
		os.Exit(1)
	}

	// Long alignment only ever sees the power-of-two prefix of an artifact.
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	prefix, err := audio.Decode(data)
	if err != nil {
		log.Warnf("Not decodable as an alignment artifact: %v", err)
	}

	st := audio.Analyze(samples, format.SampleRate)
	fmt.Printf("\n📊 %s\n", path)
	fmt.Printf("   Rate:      %d Hz, %d channel(s)\n", format.SampleRate, format.NumChannels)
	fmt.Printf("   Length:    %d samples (%.2fs)\n", st.Samples, st.Duration)
	fmt.Printf("   Aligned:   %d samples\n", len(prefix))
	fmt.Printf("   RMS:       %.4f\n", st.RMS)
	fmt.Printf("   Peak:      %.4f\n", st.Peak)
	fmt.Printf("   Dominant:  %.1f Hz\n", st.DominantHz)
}

func handleSimulate(log acousticsync.Logger, args []string) {
	simCmd := flag.NewFlagSet("simulate", flag.ExitOnError)
	delaySec := simCmd.Float64("delay", 0.05, "Delay of the remote stream in seconds")
	ticks := simCmd.Int("ticks", 10, "Number of loop steps to run")
	simCmd.Parse(args)

	rate := audio.AlignmentSampleRate
	shift := int(math.Round(*delaySec * float64(rate)))
	if shift < 0 || shift >= rate {
		fmt.Println("Error: --delay must be in [0, 1)")
		os.Exit(1)
	}

	tone := synctone.Generate(rate, 6)
	payload := make([]float64, len(tone))
	for i := range payload {
		payload[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)) * math.Sin(2*math.Pi*3*float64(i)/float64(rate))
	}
	buf := func(name string, x []float64) *audio.BufferSource {
		return &audio.BufferSource{Name: name, Samples: x, SampleRate: rate, Dir: tempDir}
	}
	sources := acousticsync.Sources{
		SyncLocal:     buf("sim-sync-local", tone),
		SyncRemote:    buf("sim-sync-remote", delayed(tone, shift)),
		PayloadLocal:  buf("sim-payload-local", payload),
		PayloadRemote: buf("sim-payload-remote", delayed(payload, shift)),
	}

	opts := append(sessionOptions(log), acousticsync.WithSampleRate(rate))
	s, err := acousticsync.NewSession(sources, opts...)
	if err != nil {
		fmt.Printf("❌ Failed to create session: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	fmt.Printf("\n🔁 Simulating %d steps with a %.4fs remote delay\n\n", *ticks, *delaySec)
	ctx := context.Background()
	frame := 2048
	remoteTone := delayed(tone, shift)
	for i := 0; i < *ticks; i++ {
		s.Tick(ctx)
		s.Wait()

		// Live frames carry the remote sync signal inverted, as it arrives
		// through a phase-flipping return path.
		at := (i*frame + rate) % (len(tone) - frame - shift)
		remote := synctone.Invert(append([]float64(nil), remoteTone[at:at+frame]...))
		if _, err := s.ProcessSyncFrames(tone[at:at+frame], remote, time.Now()); err != nil {
			log.Warnf("Tracking step failed: %v", err)
		}

		st := s.Status()
		fmt.Printf("%2d. %-10s %-28s delay %+.5fs offset %+.5fs\n", i+1, st.Phase, st.Message, st.TotalDelay, st.SyncOffset)
	}
}

func delayed(x []float64, d int) []float64 {
	y := make([]float64, len(x))
	copy(y[d:], x[:len(x)-d])
	return y
}

func printUsage() {
	fmt.Println("AcousticSync - Acoustic Stream Synchronization CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --temp <dir>          Directory for artifacts (env: ACOUSTIC_TEMP_DIR, default: /tmp)")
	fmt.Println("  --config <file>       YAML session configuration (env: ACOUSTIC_CONFIG)")
	fmt.Println("  --log-format <fmt>    text or json (env: ACOUSTIC_LOG_FORMAT, default: text)")
	fmt.Println("\nUsage:")
	fmt.Println("  acousticsync [global-options] align <local_file> <remote_file> [--duration 6s]")
	fmt.Println("  acousticsync [global-options] tone [--out synctone.wav] [--seconds 4] [--rate 48000]")
	fmt.Println("  acousticsync [global-options] inspect <file>")
	fmt.Println("  acousticsync [global-options] simulate [--delay 0.05] [--ticks 10]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Measure the offset between two recordings")
	fmt.Println("  acousticsync align near.wav far.mp3")
	fmt.Println()
	fmt.Println("  # Write the sync tone for playback on the remote side")
	fmt.Println("  acousticsync tone --out tone.wav --seconds 10")
}
