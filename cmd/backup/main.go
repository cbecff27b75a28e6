package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"familyhub/internal/config"
	"familyhub/internal/database"
	"familyhub/internal/logging"
	"familyhub/internal/service"
	"familyhub/migrations"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, "console", os.Stderr)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	ctx := context.Background()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, migrations.FS); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	backupService := service.NewBackupService(db, logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if err := handleExport(ctx, backupService, *exportOutput, logger); err != nil {
			logger.Fatal().Err(err).Msg("export failed")
		}

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := handleImport(ctx, backupService, *importInput, *importClear, *importYes, logger); err != nil {
			logger.Fatal().Err(err).Msg("import failed")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, logger zerolog.Logger) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := backupService.Export(ctx, outputPath); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info().Str("path", outputPath).Float64("size_mb", float64(info.Size())/1024/1024).Msg("export written")
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData, skipConfirm bool, logger zerolog.Logger) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	if clearData {
		if !skipConfirm && !confirm("WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
			logger.Info().Msg("import cancelled")
			return nil
		}
		if err := backupService.ClearAll(ctx); err != nil {
			return err
		}
		logger.Info().Msg("existing data cleared")
	}

	return backupService.Import(ctx, inputPath)
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func printUsage() {
	fmt.Println("FamilyHub Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation when clearing")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./familyhub.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
