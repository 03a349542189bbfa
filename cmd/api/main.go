package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/protoactor-go/actor"
	zLog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	guardian "go-tripplanner/internal/agents/guardian/handler"
	search "go-tripplanner/internal/agents/search/handler"
	supervisor "go-tripplanner/internal/agents/supervisor/handler"
	"go-tripplanner/internal/api"
	"go-tripplanner/internal/chat"
	"go-tripplanner/internal/config"
	"go-tripplanner/internal/gateway"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgFile string
	v := config.New()

	cmd := &cobra.Command{
		Use:           "tripplanner",
		Short:         "Conversational travel planning service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().String("log-level", "info", "log level")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
	return cmd
}

func serve(cfg config.Config) error {
	log.Println("starting server")
	if err := logger.NewGlobal(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completer, err := newCompleter(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	connect, err := gateway.Config{
		Name:     cfg.Gateway.Name,
		Command:  cfg.Gateway.Command,
		Args:     cfg.Gateway.Args,
		Endpoint: cfg.Gateway.Endpoint,
	}.Connector()
	if err != nil {
		return err
	}
	newGateway := func() *gateway.Gateway {
		return gateway.New(connect,
			gateway.WithName(cfg.Gateway.Name),
			gateway.WithMaxRetries(cfg.Gateway.MaxRetries),
			gateway.WithBackoffBase(cfg.Gateway.BackoffBase),
			gateway.WithCallTimeout(cfg.Gateway.CallTimeout),
		)
	}

	caps := search.DefaultCapabilities()
	if cfg.ProfilesPath != "" {
		if caps, err = search.LoadCapabilitiesFile(cfg.ProfilesPath); err != nil {
			return err
		}
	}

	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	system := actor.NewActorSystem()
	root := system.Root
	sup := supervisor.New(root, completer,
		func(models.Category) search.ToolCaller { return newGateway() },
		supervisor.WithCapabilities(caps),
		supervisor.WithSearchTimeout(cfg.Pipeline.SearchTimeout),
	)
	chats := chat.New(root, st, guardian.New(completer, sup, guardian.WithMaxTripDays(cfg.Pipeline.MaxTripDays)), chat.WithTurnTimeout(cfg.Pipeline.TurnTimeout))
	catalog := func(ctx context.Context) ([]gateway.Tool, error) {
		g := newGateway()
		defer g.Close()
		if err := g.Open(ctx); err != nil {
			return nil, err
		}
		return g.ListTools(ctx)
	}

	app := api.New(cfg.Server.Addr, chats, catalog, api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout))
	go func() {
		err := app.Start()
		if err != nil {
			zLog.Panic().Err(err).Msg("server crash")
		}
	}()

	<-ctx.Done()
	stop()
	zLog.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		zLog.Error().Err(err).Msg("server forced to shutdown")
	}
	system.Shutdown()

	zLog.Info().Msg("server exiting")
	return nil
}
