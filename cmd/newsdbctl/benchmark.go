package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/lib"
)

var (
	benchGroup string
	benchRPS   int
	benchDur   time.Duration
	benchLimit int
	benchOut   string
)

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&benchGroup, "group", "", "newsgroup to build threads for (required)")
	benchmarkCmd.Flags().IntVar(&benchRPS, "rps", 50, "requests per second")
	benchmarkCmd.Flags().DurationVar(&benchDur, "duration", 30*time.Second, "benchmark duration")
	benchmarkCmd.Flags().IntVar(&benchLimit, "limit", 0, "threads limit query param (0 = server default)")
	benchmarkCmd.Flags().StringVar(&benchOut, "out", "", "write the full metrics as JSON to this file")
	_ = benchmarkCmd.MarkFlagRequired("group")
}

// benchmarkCmd hammers the thread-building endpoint, which is the
// expensive read path: every request decodes the overview rows and runs
// a full threading pass.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Benchmark thread building on a running server",
	RunE:  runBenchmark,
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/v1/groups/%s/threads", apiHost(), benchGroup)
	if benchLimit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, benchLimit)
	}
	header := http.Header{}
	if k := apiKey(); k != "" {
		header.Set("X-API-Key", k)
	}

	// One warm-up request so a missing group or bad key fails fast
	// instead of producing a wall of identical errors.
	if err := apiJSON("GET", fmt.Sprintf("/v1/groups/%s", benchGroup), nil, nil); err != nil {
		return err
	}

	fmt.Printf("attacking %s at %d rps for %v\n", url, benchRPS, benchDur)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: "GET",
		URL:    url,
		Header: header,
	})
	rate := vegeta.Rate{Freq: benchRPS, Per: time.Second}
	attacker := vegeta.NewAttacker(vegeta.Workers(uint64(runtime.NumCPU())))

	var m vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, benchDur, "threads") {
		m.Add(res)
	}
	m.Close()

	fmt.Printf("requests:    %d (%.1f/s)\n", m.Requests, m.Rate)
	fmt.Printf("success:     %.2f%%\n", m.Success*100)
	fmt.Printf("latency:     mean=%v p50=%v p95=%v p99=%v max=%v\n",
		m.Latencies.Mean, m.Latencies.P50, m.Latencies.P95, m.Latencies.P99, m.Latencies.Max)
	fmt.Printf("bytes in:    %d total\n", m.BytesIn.Total)
	for code, n := range m.StatusCodes {
		fmt.Printf("status %s: %d\n", code, n)
	}
	if len(m.Errors) > 0 {
		fmt.Println("errors:")
		for _, e := range m.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if benchOut != "" {
		f, err := os.Create(benchOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := json.NewEncoder(f).Encode(&m); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", benchOut)
	}
	return nil
}
