package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ostrand/lansweep/internal/logging"
	"github.com/ostrand/lansweep/internal/metrics"
	"github.com/ostrand/lansweep/internal/netdetect"
	"github.com/ostrand/lansweep/internal/output"
	"github.com/ostrand/lansweep/internal/ports"
	"github.com/ostrand/lansweep/internal/scan"
)

var (
	scanTargets      string
	scanPortsFile    string
	scanPortSpec     string
	scanExcludePorts []int
	scanConcurrency  int
	scanTimeoutMS    int
	scanQuick        bool
	scanProbeRedis   bool
	scanOutputFile   string
	scanJSON         bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot port scan",
	Long: `Scan targets for open TCP ports and identify common services.

Targets are plain IPv4 addresses or CIDR blocks. When no targets are
given, the local /24 networks are detected automatically. Ports come
from --ports, a ports file, or the built-in default set.`,
	Example: `  lansweep scan
  lansweep scan --targets 192.168.1.0/24
  lansweep scan --targets "192.168.1.1,192.168.1.10" --ports "22,80,443"
  lansweep scan --targets 10.0.0.0/24 --quick --json
  lansweep scan --ports-file ports.txt --exclude-ports 5432 --output results.json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTargets, "targets", "", "Comma-separated IPv4 addresses or CIDR blocks (default: autodetect local /24s)")
	scanCmd.Flags().StringVar(&scanPortsFile, "ports-file", "", "File with one port or a-b range per line")
	scanCmd.Flags().StringVar(&scanPortSpec, "ports", "", "Inline port spec: '22,80,8000-8010'")
	scanCmd.Flags().IntSliceVar(&scanExcludePorts, "exclude-ports", nil, "Ports to remove from the selection")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "Maximum simultaneous connection attempts (default 1000, max 5000)")
	scanCmd.Flags().IntVar(&scanTimeoutMS, "timeout-ms", 0, "Per-attempt connect timeout in milliseconds (default 400)")
	scanCmd.Flags().BoolVar(&scanQuick, "quick", false, "Quick mode: narrowed port set and tightened timeout")
	scanCmd.Flags().BoolVar(&scanProbeRedis, "probe-redis", false, "Send a Redis PING probe on port 6379")
	scanCmd.Flags().StringVar(&scanOutputFile, "output", "", "Write results to a JSON file")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print results as JSON instead of a table")

	scanCmd.MarkFlagsMutuallyExclusive("ports", "ports-file")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := logging.Default().WithComponent("cli")

	cfg, err := buildCLIScanConfig()
	if err != nil {
		return err
	}

	m := metrics.New()
	engine := scan.New(logging.Default(), m)

	scanID, err := engine.Start(cfg)
	if err != nil {
		return err
	}
	logger.Info("Scan started",
		"scan_id", scanID.String(),
		"targets", len(cfg.Targets),
		"ports", len(cfg.Ports))

	// First interrupt cancels the scan and waits for in-flight
	// attempts to drain; results collected so far are still printed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	progress := time.NewTicker(2 * time.Second)
	defer progress.Stop()

	for waiting := true; waiting; {
		select {
		case <-engine.Done():
			waiting = false
		case <-sigCh:
			logger.Warn("Interrupt received, cancelling scan")
			engine.Cancel()
		case <-progress.C:
			snap := engine.Status()
			logger.Info("Scan progress",
				"scanned", snap.Scanned,
				"total", snap.Total,
				"open", snap.Open)
		}
	}

	results := engine.Results()

	if scanOutputFile != "" {
		if err := output.SaveJSON(scanOutputFile, results); err != nil {
			return err
		}
		logger.Info("Results written", "path", scanOutputFile)
	}

	if scanJSON {
		return output.WriteJSON(os.Stdout, results)
	}
	output.WriteTable(os.Stdout, results)
	return nil
}

// buildCLIScanConfig resolves flags and configuration into an engine
// configuration.
func buildCLIScanConfig() (scan.Config, error) {
	fileCfg, err := loadConfig()
	if err != nil {
		return scan.Config{}, err
	}
	scanning := fileCfg.Scanning

	targetSpecs := splitList(scanTargets)
	if len(targetSpecs) == 0 {
		targetSpecs = scanning.Targets
	}

	var targets []net.IP
	if len(targetSpecs) == 0 {
		nets, err := netdetect.LocalNetworks()
		if err != nil {
			return scan.Config{}, fmt.Errorf("local network detection failed: %w", err)
		}
		if len(nets) == 0 {
			return scan.Config{}, fmt.Errorf("no local IPv4 networks found, specify --targets")
		}
		for _, n := range nets {
			targets = append(targets, netdetect.ExpandHosts(n)...)
		}
	} else {
		targets, err = netdetect.ExpandTargets(targetSpecs)
		if err != nil {
			return scan.Config{}, err
		}
	}

	quick := scanQuick || scanning.Quick

	var portList []int
	switch {
	case scanPortSpec != "":
		portList, err = ports.ParseSpec(scanPortSpec)
		if err != nil {
			return scan.Config{}, err
		}
	case scanPortsFile != "":
		portList, err = ports.LoadFile(scanPortsFile)
		if err != nil {
			return scan.Config{}, err
		}
	case scanning.Ports != "":
		portList, err = ports.ParseSpec(scanning.Ports)
		if err != nil {
			return scan.Config{}, err
		}
	default:
		portList = ports.LoadFileOrDefault(scanning.PortsFile, quick)
	}

	exclude := scanExcludePorts
	if len(exclude) == 0 {
		exclude = scanning.ExcludePorts
	}

	concurrency := scanConcurrency
	if concurrency == 0 {
		concurrency = scanning.Concurrency
	}

	timeout := time.Duration(scanTimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = scanning.Timeout
	}

	return scan.Config{
		Targets:      targets,
		Ports:        portList,
		ExcludePorts: exclude,
		Concurrency:  concurrency,
		Timeout:      timeout,
		Quick:        quick,
		ProbeRedis:   scanProbeRedis || scanning.ProbeRedis,
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
