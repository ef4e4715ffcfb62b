package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/config"
	"omip-benchmark/internal/ingest"
	"omip-benchmark/internal/logger"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/settings"
	"omip-benchmark/internal/simulation"
	"omip-benchmark/internal/store"
	"omip-benchmark/internal/store/memory"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "import":
		cmdImport(os.Args[2:])
	case "ref":
		cmdRef(os.Args[2:])
	case "settings":
		cmdSettings(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "prices":
		cmdPrices(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli import --file omip.csv [--dry-run] [--source omip]")
	fmt.Println("  cli ref --start 2025-01 --months 12")
	fmt.Println("  cli settings apply --file settings.yaml [--activate] [--losses 7] [--eric 3] [--ren 1.5]")
	fmt.Println("  cli settings show")
	fmt.Println("  cli export --out simulations.xlsx")
	fmt.Println("  cli prices export --out prices.csv")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - database and logging come from --config or OMIP_* / DATABASE_URL")
	fmt.Println("  - import --dry-run parses and reports without touching the database")
}

type env struct {
	cfg config.Config
	log *zap.Logger
	db  *store.DB
	st  *store.Store
}

// open loads config and connects to the database.
func open(cfgPath string) *env {
	cfg, err := config.LoadUnchecked(cfgPath)
	if err != nil {
		fatal(err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		fatal(err)
	}
	db, err := store.Open(cfg.DB)
	if err != nil {
		fatal(err)
	}
	if cfg.DB.AutoMigrate {
		if err := store.AutoMigrate(db); err != nil {
			fatal(err)
		}
	}
	return &env{cfg: cfg, log: zl, db: db, st: store.New(db.Gorm)}
}

func (e *env) close() {
	_ = e.log.Sync()
	_ = store.Close(e.db)
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	filePath := fs.String("file", "", "CSV, TSV, TXT or XLSX file with month and price columns")
	dryRun := fs.Bool("dry-run", false, "Parse and report without writing")
	source := fs.String("source", "", "Override the source recorded on every row")
	_ = fs.Parse(args)

	if *filePath == "" {
		fmt.Println("--file is required")
		os.Exit(2)
	}
	f, err := os.Open(*filePath)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var writer ingest.PriceWriter = memory.New()
	var zl *zap.Logger
	if !*dryRun {
		e := open(*cfgPath)
		defer e.close()
		writer, zl = e.st, e.log
	}
	if *source != "" {
		writer = sourceOverride{next: writer, source: *source}
	}

	res, err := ingest.NewImporter(writer, nil, nil, zl).ImportFile(ctx, filepath.Base(*filePath), f, *dryRun)
	if err != nil {
		fatal(err)
	}

	verb := "Upserted"
	if res.DryRun {
		verb = "Would upsert"
	}
	fmt.Printf("%s %d rows from %s (%s, %d data rows)\n", verb, res.RowsUpserted, *filePath, res.Format, res.DataRows)
	for _, s := range res.Skipped {
		fmt.Printf("  skipped line %d: %s\n", s.Line, s.Reason)
	}
}

// sourceOverride stamps a fixed source on rows before writing them.
type sourceOverride struct {
	next   ingest.PriceWriter
	source string
}

func (s sourceOverride) UpsertMonthlyPrices(ctx context.Context, rows []model.MonthlyPrice) (int, error) {
	for i := range rows {
		rows[i].Source = s.source
	}
	return s.next.UpsertMonthlyPrices(ctx, rows)
}

func cmdRef(args []string) {
	fs := flag.NewFlagSet("ref", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	start := fs.String("start", "", "First month, YYYY-MM")
	months := fs.String("months", "12", "Window length in months")
	_ = fs.Parse(args)

	m, n, err := analysis.ParseQuery(*start, *months)
	if err != nil {
		fatal(err)
	}

	e := open(*cfgPath)
	defer e.close()

	calc := analysis.NewCalculator(e.st, e.st, e.cfg.Adjustments.Fallback.ToModel(),
		analysis.WithLogger(e.log),
		analysis.WithMaxMonths(e.cfg.Reference.MaxMonths),
	)
	res, err := calc.Compute(context.Background(), m, n)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("window    %s .. %s (%d months, %d found)\n", res.Start, res.End, res.Months, res.MonthsFound)
	fmt.Printf("settings  %s v%d losses=%.2f%% eric=%.2f ren=%.2f\n",
		res.SettingsSource, res.SettingsVersion, res.LossesPercent, res.EricPerMWh, res.RenPerMWh)
	fmt.Printf("average   %s EUR/MWh\n", fmtOpt(res.AvgIndexPrice))
	fmt.Printf("reference %s EUR/MWh\n", fmtOpt(res.ReferencePrice))
	if len(res.MonthsMissing) > 0 {
		fmt.Printf("missing   %v\n", res.MonthsMissing)
	}
}

func cmdSettings(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "apply":
		cmdSettingsApply(args[1:])
	case "show":
		cmdSettingsShow(args[1:])
	default:
		usage()
		os.Exit(2)
	}
}

func cmdSettingsApply(args []string) {
	fs := flag.NewFlagSet("settings apply", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	filePath := fs.String("file", "", "Settings YAML file")
	activate := fs.Bool("activate", false, "Make the new version current")
	losses := fs.Float64("losses", 0, "Override losses percent (non-zero only)")
	eric := fs.Float64("eric", 0, "Override ERIC EUR/MWh (non-zero only)")
	ren := fs.Float64("ren", 0, "Override REN EUR/MWh (non-zero only)")
	_ = fs.Parse(args)

	if *filePath == "" {
		fmt.Println("--file is required")
		os.Exit(2)
	}
	in, err := config.LoadSettingsFile(*filePath)
	if err != nil {
		fatal(err)
	}
	in.Adjustments = config.MergeAdjustments(in.Adjustments, model.Adjustments{
		LossesPercent: *losses,
		EricPerMWh:    *eric,
		RenPerMWh:     *ren,
	})
	in.CreatedBy = "cli"

	e := open(*cfgPath)
	defer e.close()

	svc := settings.NewService(e.st, e.cfg.Adjustments.Fallback.ToModel(), e.log)
	created, err := svc.Create(context.Background(), in, *activate)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Created settings version %d (active=%v)\n", created.Version, *activate)
}

func cmdSettingsShow(args []string) {
	fs := flag.NewFlagSet("settings show", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	_ = fs.Parse(args)

	e := open(*cfgPath)
	defer e.close()

	svc := settings.NewService(e.st, e.cfg.Adjustments.Fallback.ToModel(), e.log)
	cur, err := svc.Current(context.Background())
	if err != nil {
		fatal(err)
	}
	a := cur.Adjustments()
	fmt.Printf("source  %s\n", cur.Source)
	if cur.Settings != nil {
		fmt.Printf("version %d (%s)\n", cur.Settings.Version, cur.Settings.CreatedAt.Format(time.RFC3339))
		fmt.Printf("network mt=%.2f bte=%.2f btn=%.2f\n",
			cur.Settings.Networks.MTPerMWh, cur.Settings.Networks.BTEPerMWh, cur.Settings.Networks.BTNPerMWh)
	}
	fmt.Printf("losses  %.2f%%\neric    %.2f\nren     %.2f\n", a.LossesPercent, a.EricPerMWh, a.RenPerMWh)

	versions, err := svc.List(context.Background(), 10)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%-8s %-8s %-8s %-8s %s\n", "version", "losses", "eric", "ren", "note")
	for _, v := range versions {
		fmt.Printf("%-8d %-8.2f %-8.2f %-8.2f %s\n", v.Version, v.LossesPercent, v.EricPerMWh, v.RenPerMWh, v.Note)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "simulations.xlsx", "Output XLSX path")
	_ = fs.Parse(args)

	e := open(*cfgPath)
	defer e.close()

	svc := simulation.NewService(e.st, nil, nil, e.log)
	sims, err := svc.ListAll(context.Background(), 0)
	if err != nil {
		fatal(err)
	}
	raw, err := simulation.BuildSimulationsXLSX(sims)
	if err != nil {
		fatal(err)
	}
	writeFile(*outPath, raw)
	fmt.Printf("Wrote %d simulations to %s\n", len(sims), *outPath)
}

func cmdPrices(args []string) {
	if len(args) < 1 || args[0] != "export" {
		usage()
		os.Exit(2)
	}
	fs := flag.NewFlagSet("prices export", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "prices.csv", "Output CSV path")
	_ = fs.Parse(args[1:])

	e := open(*cfgPath)
	defer e.close()

	rows, err := e.st.ListMonthlyPrices(context.Background(), model.Month{}, model.Month{})
	if err != nil {
		fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fatal(err)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		fatal(err)
	}
	defer f.Close()
	if err := ingest.WritePricesCSV(f, rows); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %d months to %s\n", len(rows), *outPath)
}

func writeFile(path string, raw []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		fatal(err)
	}
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
