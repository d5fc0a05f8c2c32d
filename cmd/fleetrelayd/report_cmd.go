package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fleetrelay/fleetrelay/internal/report"
)

// runReportCLI implements "fleetrelayd report": a one-shot read of the
// SQLite reporting mirror (internal/report), printed as a table. It never
// touches the coordinator, the audit log, or the CSV stores directly —
// it only reads whatever the running (or most recently run) daemon last
// synced into report.db, grounded on the teacher's cmd/daemon/report_cmd.go
// subcommand shape.
func runReportCLI(args []string) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetrelayd report: load config: %v\n", err)
		return 1
	}

	dbPath := reportDBPath(cfg.DataDir)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "fleetrelayd report: no report data at %s yet; start fleetrelayd first\n", dbPath)
		return 1
	}

	db, err := report.Open(dbPath, report.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetrelayd report: open report store: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	store := report.NewStore(db)
	rows, err := store.VehicleReportRows(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetrelayd report: query: %v\n", err)
		return 1
	}

	printFleetReport(rows)
	return 0
}

func printFleetReport(rows []report.VehicleReportRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintln(w, "VEHICLE_ID\tKIND\tCITY\tSTATE\tBATTERY%\tACTIVE_RENTAL")
	for _, row := range rows {
		activeRental := row.ActiveRentalID
		if activeRental == "" {
			activeRental = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			row.VehicleID, row.Kind, row.City, row.State, row.BatteryPercent, activeRental)
	}
}
