package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	demandcast "github.com/demandcast/demandcast"
	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/config"
	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/modelstore"
	"github.com/demandcast/demandcast/trainer"
	"github.com/go-co-op/gocron"
	"github.com/olekukonko/tablewriter"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	inputPath := flag.String("input", "", "path to daily history CSV")
	eventsPath := flag.String("events", "", "path to comeback event history JSON")
	entity := flag.String("entity", "default", "entity name for stored artifacts")
	horizon := flag.Int("horizon", 0, "days to forecast (overrides config)")
	plotPath := flag.String("plot", "", "write an html forecast plot to this path")
	table := flag.Bool("table", false, "print the forecast as a table")
	optimize := flag.Bool("optimize", false, "grid-search hyperparameters before training")
	schedule := flag.Bool("schedule", false, "keep running and retrain daily")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	slog.SetDefault(cfg.Logger())

	if *inputPath == "" {
		slog.Error("missing -input history file")
		os.Exit(1)
	}

	store, err := modelstore.Open(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open model store", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run := func() error {
		return runOnce(ctx, cfg, store, runOpts{
			input:    *inputPath,
			events:   *eventsPath,
			entity:   *entity,
			horizon:  *horizon,
			plot:     *plotPath,
			table:    *table,
			optimize: *optimize,
		})
	}

	if err := run(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	if !*schedule || !cfg.Schedule.Enabled {
		return
	}

	hour, minute := cfg.ScheduleAt()
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(1).Day().At(fmt.Sprintf("%02d:%02d", hour, minute)).Do(func() {
		if err := run(); err != nil {
			slog.Error("scheduled run failed", "err", err)
		}
	}); err != nil {
		slog.Error("failed to schedule daily run", "err", err)
		os.Exit(1)
	}
	scheduler.StartAsync()
	slog.Info("daily retrain scheduled", "at", fmt.Sprintf("%02d:%02d UTC", hour, minute))

	<-ctx.Done()
	scheduler.Stop()
	slog.Info("demandcast stopped cleanly")
}

type runOpts struct {
	input    string
	events   string
	entity   string
	horizon  int
	plot     string
	table    bool
	optimize bool
}

func runOnce(ctx context.Context, cfg *config.Config, store *modelstore.Store, opts runOpts) error {
	records, err := loadRecords(opts.input)
	if err != nil {
		return fmt.Errorf("unable to load history, %w", err)
	}
	slog.Info("history loaded", "records", len(records), "entity", opts.entity)

	engine := demandcast.New(cfg.EngineOptions())
	defer engine.Close()

	if opts.optimize {
		search, err := engine.Tune(records, trainer.NewDefaultGrid())
		if err != nil {
			slog.Warn("hyperparameter search failed, training with configured values", "err", err)
		} else {
			slog.Info("hyperparameters tuned",
				"r2", search.BestScore,
				"learning_rate", search.Best.Config.LearningRate,
				"hidden_width", search.Best.Config.HiddenWidth,
				"candidates", len(search.AllResults),
			)
		}
	}

	training, err := engine.Fit(records)
	if err != nil {
		slog.Warn("training failed, forecasts will use the heuristic path", "err", err)
	} else {
		slog.Info("model trained",
			"samples", training.Samples,
			"r2", training.Holdout.R2,
			"mae", training.Holdout.MAE,
			"best_epoch", training.BestEpoch,
			"duration", training.TrainingTime,
		)
		if art, err := engine.Artifact(); err == nil {
			if err := store.SaveArtifact(ctx, opts.entity, art); err != nil {
				slog.Warn("failed to persist artifact", "err", err)
			}
		}
	}

	var events []forecast.EventImpact
	var next *comeback.Prediction
	if opts.events != "" {
		history, err := loadEvents(opts.events)
		if err != nil {
			return fmt.Errorf("unable to load events, %w", err)
		}
		next, err = engine.PredictNextEvent(history, nil, nil)
		if err != nil {
			return fmt.Errorf("unable to predict next event, %w", err)
		}
		slog.Info("next comeback predicted",
			"date", next.Date.Format(time.DateOnly),
			"confidence", next.Confidence,
		)
		events = append(events, engine.ImpactOn(next.Date, history))
	}

	result, err := engine.Forecast(opts.horizon, events)
	if err != nil {
		return fmt.Errorf("unable to forecast, %w", err)
	}
	slog.Info("forecast generated",
		"id", result.ID,
		"days", len(result.Days),
		"method", result.Method,
		"degraded", result.Degraded,
	)

	report := engine.NewReport(opts.entity, result, next)
	if payload, err := report.Marshal(); err == nil {
		if err := store.SaveReport(ctx, report.ID, opts.entity, report.GeneratedAt, payload); err != nil {
			slog.Warn("failed to persist report", "err", err)
		}
	}

	if opts.table {
		printForecast(result)
	}
	if opts.plot != "" {
		if err := engine.PlotForecast(opts.plot, result); err != nil {
			slog.Warn("failed to write plot", "err", err, "path", opts.plot)
		} else {
			slog.Info("plot written", "path", opts.plot)
		}
	}
	return nil
}

func printForecast(res *forecast.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Date", "Weekday", "Orders", "Confidence")
	for _, d := range res.Days {
		table.Append(
			d.Date.Format(time.DateOnly),
			d.Date.Weekday().String(),
			fmt.Sprintf("%.1f", d.Value),
			fmt.Sprintf("%.0f%%", d.Confidence*100),
		)
	}
	table.Render()
}
