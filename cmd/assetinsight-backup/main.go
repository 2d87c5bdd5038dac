package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"assetinsight/internal/amqp"
	"assetinsight/internal/backend"
	"assetinsight/internal/backup"
	"assetinsight/internal/cli"
	"assetinsight/internal/config"
	applog "assetinsight/internal/log"
	"assetinsight/internal/services"
	"assetinsight/internal/storage"
)

const usage = `usage: assetinsight-backup <command> [flags]

commands:
  export   write a backup to the backup channel, or to -o <file|->
  import   restore the newest backup, -name <backup> or -i <file|->
  list     list the backups in the channel, oldest first
  prune    delete all but the newest -keep backups
  status   show schema version, dataset size and the newest backup

The channel is BACKUP_DIR or S3_BUCKET; -dir overrides both.`

type app struct {
	logger  *applog.Logger
	cfg     *config.Config
	factory backend.Factory
	bcfg    backend.Config
	store   *backend.BackendResult
	assets  *services.AssetService
	amqp    *amqp.Client
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		fmt.Println(usage)
		return
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentBackup)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a := &app{logger: logger, cfg: cfg}
	a.factory, a.bcfg, a.store = cli.InitStore(ctx, logger, cfg)
	defer a.close()

	var err error
	switch cmd {
	case "export":
		err = a.export(ctx, args)
	case "import":
		err = a.restore(ctx, args)
	case "list":
		err = a.list(ctx, args)
	case "prune":
		err = a.prune(ctx, args)
	case "status":
		err = a.status(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		a.close()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Backup command failed", "command", cmd, "error", err)
		a.close()
		os.Exit(1)
	}
}

func (a *app) close() {
	if a.amqp != nil {
		_ = a.amqp.Close()
		a.amqp = nil
	}
	if a.store != nil && a.store.Cleanup != nil {
		if err := a.store.Cleanup(); err != nil {
			a.logger.Warn("Failed to close store", "error", err)
		}
		a.store = nil
	}
}

// service builds the asset service, publishing restore events when AMQP is configured so
// that the report worker refreshes the sheet.
func (a *app) service() *services.AssetService {
	if a.assets != nil {
		return a.assets
	}
	var publisher services.Publisher
	if a.cfg.AMQPEnabled() {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			a.logger.Warn("AMQP unavailable, the report will refresh on the next change", "error", err)
		} else {
			a.amqp = client
			publisher = client
		}
	}
	a.assets = services.NewAssetService(a.store.Store, publisher)
	return a.assets
}

// channel resolves the backup channel; dir, when set, wins over the configuration.
func (a *app) channel(ctx context.Context, dir string) (backup.Channel, error) {
	if dir != "" {
		return backup.NewFileChannel(dir)
	}
	ch, err := a.factory.CreateBackupChannel(ctx, a.bcfg)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, errors.New("no backup channel: set BACKUP_DIR, S3_BUCKET or -dir")
	}
	return ch, nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "write to this file instead of the channel (- for stdout)")
	dir := fs.String("dir", "", "backup directory")
	_ = fs.Parse(args)

	exchange := a.service().Exchange()
	if *out != "" {
		doc, err := exchange.Export(ctx)
		if err != nil {
			return err
		}
		if err := writeDocument(*out, doc); err != nil {
			return err
		}
		a.logger.Info("Backup written", applog.FieldBackup, *out,
			"categories", len(doc.Categories), "snapshots", len(doc.Snapshots))
		return nil
	}

	ch, err := a.channel(ctx, *dir)
	if err != nil {
		return err
	}
	name, err := exchange.ExportTo(ctx, ch)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func (a *app) restore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("i", "", "read from this file instead of the channel (- for stdin)")
	name := fs.String("name", "", "backup to restore (default newest)")
	dir := fs.String("dir", "", "backup directory")
	_ = fs.Parse(args)

	svc := a.service()
	if *in != "" {
		doc, err := readDocument(*in)
		if err != nil {
			return err
		}
		if err := svc.RestoreBackup(ctx, doc); err != nil {
			return err
		}
		a.logger.Info("Backup restored", applog.FieldBackup, *in,
			"categories", len(doc.Categories), "snapshots", len(doc.Snapshots))
		return nil
	}

	ch, err := a.channel(ctx, *dir)
	if err != nil {
		return err
	}
	doc, err := svc.RestoreFrom(ctx, ch, *name)
	if err != nil {
		return err
	}
	a.logger.Info("Backup restored", "backup_date", doc.BackupDate,
		"categories", len(doc.Categories), "snapshots", len(doc.Snapshots))
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dir := fs.String("dir", "", "backup directory")
	_ = fs.Parse(args)

	ch, err := a.channel(ctx, *dir)
	if err != nil {
		return err
	}
	names, err := ch.List(ctx)
	if err != nil {
		return err
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func (a *app) prune(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	keep := fs.Int("keep", a.cfg.BackupKeep, "backups to keep")
	dir := fs.String("dir", "", "backup directory")
	_ = fs.Parse(args)

	if *keep < 1 {
		return fmt.Errorf("-keep must be at least 1, got %d", *keep)
	}
	ch, err := a.channel(ctx, *dir)
	if err != nil {
		return err
	}
	removed, err := backup.Prune(ctx, ch, *keep)
	if err != nil {
		return err
	}
	for _, n := range removed {
		fmt.Println(n)
	}
	a.logger.Info("Backups pruned", applog.FieldCount, len(removed), "keep", *keep)
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dir := fs.String("dir", "", "backup directory")
	_ = fs.Parse(args)

	fmt.Printf("backend:     %s\n", a.cfg.DataBackend)
	if a.bcfg.Type == backend.SQLiteBackend {
		version, dirty, err := storage.SchemaVersion(a.bcfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		fmt.Printf("database:    %s\n", a.bcfg.SQLiteDBPath)
		fmt.Printf("schema:      v%d dirty=%t\n", version, dirty)
	}

	doc, err := a.service().ExportBackup(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("categories:  %d\n", len(doc.Categories))
	fmt.Printf("snapshots:   %d\n", len(doc.Snapshots))

	ch, err := a.channel(ctx, *dir)
	if err != nil {
		fmt.Printf("backups:     none (%v)\n", err)
		return nil
	}
	names, err := ch.List(ctx)
	if err != nil {
		return err
	}
	slices.Sort(names)
	latest := "-"
	if len(names) > 0 {
		latest = names[len(names)-1]
	}
	fmt.Printf("backups:     %d (latest %s)\n", len(names), latest)
	return nil
}

func writeDocument(path string, doc backup.Document) error {
	if path == "-" {
		return backup.Encode(os.Stdout, doc)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := backup.Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readDocument(path string) (backup.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return backup.Document{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return backup.Decode(r)
}
