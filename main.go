package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/cwsl/ftx/ft8"
)

// Version information
const Version = "0.1.0"

// appLogger is replaced once the configuration has been loaded
var appLogger = log.WithPrefix("ftx")

var cli struct {
	Config   string `help:"Path to a YAML configuration file" type:"path"`
	Verbose  bool   `help:"Prints debug output"`
	LogLevel string `help:"Overrides the configured log level (debug, info, warn, error)"`

	Decode struct {
		File     string `arg:"" help:"WAV recording of one slot" type:"existingfile"`
		Protocol string `help:"FT8 or FT4, overrides the configuration"`
		JSON     bool   `help:"Print decodes as JSON lines"`
		Workers  int    `help:"Concurrent candidate decodes (0 = configured value)"`
		Dial     uint64 `help:"Dial frequency in Hz, overrides the configuration"`
		Publish  bool   `help:"Publish decodes to the configured MQTT broker"`
		Push     bool   `help:"Push decode metrics to the configured Pushgateway"`
	} `cmd:"" help:"Decode every message in a slot recording"`

	Candidates struct {
		File     string `arg:"" help:"WAV recording of one slot" type:"existingfile"`
		Protocol string `help:"FT8 or FT4, overrides the configuration"`
		Max      int    `help:"Maximum candidates to list (0 = configured value)"`
	} `cmd:"" help:"List sync candidates without decoding them"`

	Encode struct {
		Text     string  `arg:"" help:"Message text, e.g. 'CQ W1ABC FN42'"`
		Output   string  `short:"o" help:"Output WAV file" default:"ftx.wav" type:"path"`
		Freq     float64 `help:"Base tone frequency in Hz (0 = configured value)"`
		Protocol string  `help:"FT8 or FT4, overrides the configuration"`
		Pad      bool    `help:"Centre the waveform in a full silent slot"`
	} `cmd:"" help:"Synthesize a message to a WAV file"`

	Check struct {
		Text     string `arg:"" help:"Message text"`
		Protocol string `help:"FT8 or FT4, overrides the configuration"`
	} `cmd:"" help:"Show how a message packs without synthesizing it"`

	Version struct{} `cmd:"" help:"Print the version"`
}

func main() {
	flags := kong.Parse(&cli,
		kong.Name("ftx"),
		kong.Description("FT8/FT4 decoder and encoder"),
		kong.UsageOnError(),
	)

	config, err := LoadConfig(cli.Config)
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}
	if cli.LogLevel != "" {
		config.Logging.Level = cli.LogLevel
	}
	if cli.Verbose {
		config.Logging.Level = "debug"
	}
	appLogger = config.Logging.newLogger()
	ft8.SetLogger(appLogger.WithPrefix("ft8"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flags.Command() {
	case "decode <file>":
		err = runDecode(ctx, config)
	case "candidates <file>":
		err = runCandidates(config)
	case "encode <text>":
		err = runEncode(config)
	case "check <text>":
		err = runCheck(config)
	case "version":
		fmt.Printf("ftx %s\n", Version)
	default:
		err = fmt.Errorf("unknown command %q", flags.Command())
	}
	if err != nil {
		appLogger.Error("Command failed", "command", flags.Command(), "err", err)
		os.Exit(1)
	}
}

// overrideProtocol parses a --protocol flag, keeping current when it is empty
func overrideProtocol(flag string, current ft8.Protocol) (ft8.Protocol, error) {
	if flag == "" {
		return current, nil
	}
	return ft8.ParseProtocol(flag)
}

// newHashTable builds the callsign hash table from the station settings
func newHashTable(station StationConfig) *ft8.CallsignHashTable {
	size := station.HashTableSize
	if size <= 0 {
		size = ft8.DefaultHashTableSize
	}
	return ft8.NewCallsignHashTable(size, time.Duration(station.HashMaxAge)*time.Minute)
}

// slotStart returns the start of the slot containing t
func slotStart(t time.Time, protocol ft8.Protocol) time.Time {
	period := time.Duration(protocol.SlotTime() * float64(time.Second))
	return t.UTC().Truncate(period)
}

func runDecode(ctx context.Context, config *Config) error {
	opts := cli.Decode
	decoderConfig := config.Decoder

	protocol, err := overrideProtocol(opts.Protocol, decoderConfig.Protocol)
	if err != nil {
		return err
	}
	decoderConfig.Protocol = protocol
	if opts.Workers > 0 {
		decoderConfig.Workers = opts.Workers
	}
	if opts.Dial > 0 {
		config.Station.DialFrequency = opts.Dial
	}

	decoder, err := ft8.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}

	audio, err := ReadWAV(opts.File)
	if err != nil {
		return err
	}
	appLogger.Debug("Loaded recording", "file", opts.File, "rate", audio.SampleRate,
		"channels", audio.Channels, "seconds", audio.Duration())

	var metrics *DecodeMetrics
	if opts.Push || config.Prometheus.Enabled {
		metrics = NewDecodeMetrics()
	}

	started := time.Now()
	wf, err := decoder.Analyze(audio)
	if err != nil {
		return err
	}
	candidates := wf.FindCandidates(decoderConfig.MaxCandidates, decoderConfig.MinScore)
	messages, err := decoder.DecodeWaterfall(ctx, wf, candidates, newHashTable(config.Station))
	elapsed := time.Since(started)
	metrics.RecordRun(protocol, len(candidates), messages, elapsed, err)
	if err != nil && len(messages) == 0 {
		return err
	}
	if err != nil {
		appLogger.Warn("Decode interrupted", "decoded", len(messages), "err", err)
	}

	timestamp := slotStart(started, protocol)
	if info, statErr := os.Stat(opts.File); statErr == nil {
		timestamp = slotStart(info.ModTime(), protocol)
	}

	cycleID := newCycleID()
	decodes := make([]DecodeInfo, 0, len(messages))
	for _, msg := range messages {
		decodes = append(decodes, NewDecodeInfo(msg, cycleID, timestamp, config.Station))
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		for _, info := range decodes {
			if err := enc.Encode(info); err != nil {
				return err
			}
		}
	} else {
		for _, info := range decodes {
			fmt.Println(formatDecode(info))
		}
	}

	appLogger.Info("Decode complete", "protocol", protocol, "candidates", len(candidates),
		"decoded", len(messages), "elapsed", elapsed.Round(time.Millisecond))

	if opts.Publish || config.MQTT.Enabled {
		if config.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker not configured")
		}
		publisher, err := NewMQTTPublisher(&config.MQTT)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.PublishDecodes(decodes); err != nil {
			return err
		}
		appLogger.Info("Published decodes", "count", len(decodes), "broker", config.MQTT.Broker)
	}

	if metrics != nil {
		if config.Prometheus.Pushgateway.URL == "" {
			return fmt.Errorf("pushgateway url not configured")
		}
		if err := metrics.Push(config.Prometheus.Pushgateway, config.Station); err != nil {
			return err
		}
	}
	return nil
}

// formatDecode renders a decode in the WSJT-X ALL.TXT column layout
func formatDecode(info DecodeInfo) string {
	marker := "~"
	if info.Mode == ft8.ProtocolFT4 {
		marker = "+"
	}
	return fmt.Sprintf("%s %3d %4.1f %4.0f %s  %s",
		info.Timestamp.Format("150405"), info.SNR, info.DT, info.AudioFreq, marker, info.Message)
}

func runCandidates(config *Config) error {
	opts := cli.Candidates
	decoderConfig := config.Decoder

	protocol, err := overrideProtocol(opts.Protocol, decoderConfig.Protocol)
	if err != nil {
		return err
	}
	decoderConfig.Protocol = protocol
	if opts.Max > 0 {
		decoderConfig.MaxCandidates = opts.Max
	}

	decoder, err := ft8.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	audio, err := ReadWAV(opts.File)
	if err != nil {
		return err
	}

	wf, err := decoder.Analyze(audio)
	if err != nil {
		return err
	}
	candidates := wf.FindCandidates(decoderConfig.MaxCandidates, decoderConfig.MinScore)
	fmt.Printf("%5s %7s %7s %5s %5s\n", "score", "freq", "time", "block", "bin")
	for _, cand := range candidates {
		fmt.Printf("%5d %7.1f %7.2f %5d %5d\n",
			cand.Score, wf.Frequency(cand), wf.Time(cand), cand.TimeOffset, cand.FreqOffset)
	}
	appLogger.Debug("Candidate search complete", "blocks", wf.NumBlocks, "bins", wf.NumBins, "found", len(candidates))
	return nil
}

func runEncode(config *Config) error {
	opts := cli.Encode
	encoderConfig := config.Encoder

	protocol, err := overrideProtocol(opts.Protocol, encoderConfig.Protocol)
	if err != nil {
		return err
	}
	encoderConfig.Protocol = protocol
	if opts.Freq > 0 {
		encoderConfig.Frequency = opts.Freq
	}
	if opts.Pad {
		encoderConfig.PadToSlot = true
	}

	msg, audio, err := ft8.EncodeToAudio(opts.Text, encoderConfig, newHashTable(config.Station))
	if err != nil {
		return err
	}
	if err := WriteWAV(opts.Output, audio); err != nil {
		return err
	}

	appLogger.Info("Wrote message", "file", opts.Output, "text", msg.Text, "type", msg.Type,
		"protocol", msg.Protocol, "freq", encoderConfig.Frequency, "seconds", audio.Duration())
	return nil
}

func runCheck(config *Config) error {
	opts := cli.Check
	protocol, err := overrideProtocol(opts.Protocol, config.Encoder.Protocol)
	if err != nil {
		return err
	}

	msg, err := ft8.Encode(opts.Text, protocol, newHashTable(config.Station))
	if err != nil {
		return err
	}

	var tones strings.Builder
	for _, tone := range msg.Tones {
		tones.WriteByte('0' + tone)
	}
	fmt.Printf("Text:     %s\n", msg.Text)
	fmt.Printf("Type:     %s\n", msg.Type)
	fmt.Printf("Protocol: %s\n", msg.Protocol)
	fmt.Printf("Payload:  % X\n", msg.Payload[:])
	fmt.Printf("Hash:     %04X\n", msg.Hash)
	fmt.Printf("Tones:    %s\n", tones.String())
	return nil
}
