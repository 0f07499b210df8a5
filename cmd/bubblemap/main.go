package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trader-bubblemap-go/internal/analysis"
	"trader-bubblemap-go/internal/config"
	"trader-bubblemap-go/internal/database"
	"trader-bubblemap-go/internal/flipside"
	"trader-bubblemap-go/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "bubblemap",
		Short:        "Top traders bubble map tool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "./configs", "config directory path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis and render the bubble map",
		RunE:  runAnalysis,
	}

	runCmd.Flags().String("chain", "ethereum", "blockchain (solana, ethereum, base, arbitrum, optimism, avalanche, bsc, polygon)")
	runCmd.Flags().String("contract", "", "token contract address")
	runCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	runCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	runCmd.Flags().Float64("min-usd", 1, "minimum USD volume per trade")
	runCmd.Flags().Float64("max-usd", 10_000_000, "maximum USD volume per trade")
	runCmd.Flags().Int("min-days", 3, "minimum active days per trader")
	runCmd.Flags().Int("limit", 200, "number of top traders considered")
	runCmd.Flags().String("out", "", "output filename (default from config)")
	_ = runCmd.MarkFlagRequired("contract")
	_ = runCmd.MarkFlagRequired("start")
	_ = runCmd.MarkFlagRequired("end")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	defer log.Sync()

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	params, err := paramsFromFlags(cmd)
	if err != nil {
		return err
	}

	// Setup context for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, cancelling analysis...")
		cancel()
	}()

	client := flipside.NewClient(&cfg.Flipside, log)
	service := analysis.NewService(log, &cfg, client, db)

	result, err := service.Run(ctx, params)
	if err != nil {
		return err
	}

	log.Info("Bubble map written",
		zap.String("path", result.OutputPath),
		zap.Int("nodes", result.Run.NodeCount),
		zap.Int("edges", result.Run.EdgeCount),
	)
	fmt.Println(result.OutputPath)
	return nil
}

func paramsFromFlags(cmd *cobra.Command) (analysis.Params, error) {
	chain, _ := cmd.Flags().GetString("chain")
	contract, _ := cmd.Flags().GetString("contract")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	minUSD, _ := cmd.Flags().GetFloat64("min-usd")
	maxUSD, _ := cmd.Flags().GetFloat64("max-usd")
	minDays, _ := cmd.Flags().GetInt("min-days")
	limit, _ := cmd.Flags().GetInt("limit")
	out, _ := cmd.Flags().GetString("out")

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return analysis.Params{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return analysis.Params{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
	}

	return analysis.Params{
		Chain:           chain,
		ContractAddress: contract,
		StartDate:       start,
		EndDate:         end,
		MinUSDAmount:    minUSD,
		MaxUSDAmount:    maxUSD,
		MinActiveDays:   minDays,
		Limit:           limit,
		OutputFilename:  out,
	}, nil
}
