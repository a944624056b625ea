package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jonas9200/clima-AGS/internal/config"
	"github.com/jonas9200/clima-AGS/internal/db"
	"github.com/jonas9200/clima-AGS/internal/logging"
	"github.com/jonas9200/clima-AGS/internal/migrate"
	"github.com/jonas9200/clima-AGS/pkg/client"
	"github.com/jonas9200/clima-AGS/pkg/readings"
)

const appName = "iotctl"

var version = "dev"

// fallbackDevice is offered when the device list cannot be loaded.
const fallbackDevice = "Pluviometro_01"

const usage = `usage: iotctl <command> [flags]

commands:
  migrate   apply pending schema migrations (uses DB_* env)
  devices   list devices known to the API
  series    print the raw series for a device
  hourly    print hourly buckets for a device
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx)
	case "devices", "series", "hourly":
		err = runQuery(ctx, os.Args[1], os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg, version, appName)

	conn, dialect, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, conn, dialect, logger)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("no pending migrations")
		return nil
	}
	fmt.Printf("migrations applied: %s\n", strings.Join(applied, ", "))
	return nil
}

type queryFlags struct {
	server string
	device string
	period string
	from   string
	to     string
	local  bool
	asJSON bool
}

func parseQueryFlags(cmd string, args []string) (queryFlags, error) {
	var qf queryFlags
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVar(&qf.server, "server", envOr("CLIMA_API_URL", "http://localhost:10000"), "API base URL")
	fs.StringVar(&qf.device, "device", "", "device id (equipamento)")
	fs.StringVar(&qf.period, "period", "", "quick range: "+windowKeys())
	fs.StringVar(&qf.from, "from", "", "start, YYYY-MM-DD HH:MM:SS")
	fs.StringVar(&qf.to, "to", "", "end, YYYY-MM-DD HH:MM:SS")
	fs.BoolVar(&qf.local, "local", false, "hourly: bucket the raw series locally")
	fs.BoolVar(&qf.asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return qf, err
	}
	return qf, nil
}

func (qf queryFlags) query() (client.Query, error) {
	q := client.Query{DeviceID: qf.device, Period: qf.period}
	if qf.from != "" {
		t, err := readings.ParseTimestamp(qf.from)
		if err != nil {
			return q, fmt.Errorf("-from: %w", err)
		}
		q.Start = t
	}
	if qf.to != "" {
		t, err := readings.ParseTimestamp(qf.to)
		if err != nil {
			return q, fmt.Errorf("-to: %w", err)
		}
		q.End = t
	}
	if q.Period == "" && q.Start.IsZero() && q.End.IsZero() {
		q.Period = readings.DefaultWindowKey
	}
	return q, nil
}

func runQuery(ctx context.Context, cmd string, args []string, out io.Writer) error {
	qf, err := parseQueryFlags(cmd, args)
	if err != nil {
		return err
	}
	c := client.New(qf.server, nil)

	if cmd == "devices" {
		devices, err := devicesOrFallback(ctx, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v; using %s\n", err, fallbackDevice)
		}
		if qf.asJSON {
			return writeJSON(out, devices)
		}
		for _, d := range devices {
			fmt.Fprintln(out, d)
		}
		return nil
	}

	if qf.device == "" {
		devices, err := devicesOrFallback(ctx, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v; using %s\n", err, fallbackDevice)
		}
		qf.device = devices[0]
	}
	q, err := qf.query()
	if err != nil {
		return err
	}

	switch cmd {
	case "series":
		res, err := c.Series(ctx, q)
		if err != nil {
			return err
		}
		if qf.asJSON {
			return writeJSON(out, res)
		}
		return printSeries(out, res.Records, res.TotalRain)
	default:
		fetch := c.Hourly
		if qf.local {
			fetch = c.HourlySeries
		}
		res, err := fetch(ctx, q)
		if err != nil {
			return err
		}
		if qf.asJSON {
			return writeJSON(out, res)
		}
		return printBuckets(out, res.Buckets, res.TotalRain)
	}
}

// devicesOrFallback always returns at least one device; err reports why
// the fallback was used.
func devicesOrFallback(ctx context.Context, c *client.Client) ([]string, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return []string{fallbackDevice}, err
	}
	if len(devices) == 0 {
		return []string{fallbackDevice}, fmt.Errorf("no devices registered")
	}
	return devices, nil
}

func printSeries(out io.Writer, records []readings.Record, total float64) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REGISTRO\tCHUVA\tTEMPERATURA\tUMIDADE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(readings.StoreTimeLayout), cell(r.Rain), cell(r.Temperature), cell(r.Humidity))
	}
	fmt.Fprintf(tw, "total chuva\t%.2f mm\t\t\n", total)
	return tw.Flush()
}

func printBuckets(out io.Writer, buckets []readings.Bucket, total float64) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HORA\tAMOSTRAS\tCHUVA\tTEMPERATURA\tUMIDADE")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%s\n",
			b.HourStart.Format("2006-01-02 15:00"), b.SampleCount, b.Rain,
			meanCell(b.Temperature, b.TemperatureSamples), meanCell(b.Humidity, b.HumiditySamples))
	}
	fmt.Fprintf(tw, "total chuva\t\t%.2f mm\t\t\n", total)
	return tw.Flush()
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func meanCell(v float64, n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func windowKeys() string {
	ws := readings.Windows()
	keys := make([]string, 0, len(ws))
	for _, w := range ws {
		keys = append(keys, fmt.Sprintf("%s (%s)", w.Key, w.Label))
	}
	return strings.Join(keys, ", ")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
