// The rdt-sender command transfers a file to a receiver over UDP using
// the rdt protocol and prints the transfer report as a CSV line:
// throughput (bytes/s), mean delay (s), jitter (s), score.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	rdt "github.com/rdt-go/rdt-go"
	"github.com/rdt-go/rdt-go/logging"
	"github.com/rdt-go/rdt-go/metrics"
)

func main() {
	host := flag.String("host", envOr("RECEIVER_HOST", "127.0.0.1"), "receiver host")
	port := flag.String("port", envOr("RECEIVER_PORT", "5001"), "receiver port")
	file := flag.String("file", os.Getenv("TEST_FILE"), "file to transfer")
	configPath := flag.String("config", os.Getenv("RDT_CONFIG"), "YAML configuration file")
	algorithm := flag.String("cc", "", "congestion control algorithm (reno or adaptive), overrides the config file")
	metricsAddr := flag.String("metrics", os.Getenv("RDT_METRICS_ADDR"), "expose Prometheus metrics on this address")
	flag.Parse()

	if err := run(*host, *port, *file, *configPath, *algorithm, *metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "rdt-sender:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// payloadFile picks the file to transfer: the explicit flag, then the
// conventional locations used by the evaluation harness.
func payloadFile(file string) (string, error) {
	candidates := []string{file, os.Getenv("PAYLOAD_FILE"), "/hdd/file.zip", "file.zip"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errors.New("no payload file found, use -file")
}

func run(host, port, file, configPath, algorithm, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &rdt.Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		config, err = rdt.ParseConfig(data)
		if err != nil {
			return err
		}
	}
	if algorithm != "" {
		a, err := rdt.CongestionControlAlgorithmFromString(algorithm)
		if err != nil {
			return err
		}
		config.Algorithm = a
	}
	if metricsAddr != "" {
		config.Tracer = logging.NewMultiplexedTracer(config.Tracer, metrics.NewTracer())
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				fmt.Fprintln(os.Stderr, "rdt-sender: metrics server:", err)
			}
		}()
	}

	path, err := payloadFile(file)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	conn, err := net.Dial("udp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	session, err := rdt.NewSession(conn, config)
	if err != nil {
		conn.Close()
		return err
	}

	report, err := session.Send(ctx, payload)
	if err != nil {
		return err
	}
	fmt.Println(report.CSV())
	return nil
}
