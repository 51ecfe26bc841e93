package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yoockh/audition/config"
	"github.com/yoockh/audition/internal/cache"
	"github.com/yoockh/audition/internal/catalog"
	"github.com/yoockh/audition/internal/logger"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/services"
)

func main() {
	_ = godotenv.Load()
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		file     string
		migrate  bool
		validate bool
	)
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load opportunities and their questions from a YAML catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New()

			c, err := catalog.Load(file)
			if err != nil {
				return err
			}
			if validate {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d opportunities OK\n", file, len(c.Opportunities))
				return nil
			}

			cfg := config.Load()
			if cfg.PostgresURI == "" {
				return errors.New("POSTGRES_URI environment variable is not set")
			}
			db, err := config.NewPostgres(cfg.PostgresURI)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			if migrate {
				if err := config.Migrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			repo := pgrepo.NewOpportunityRepo(db)
			var inv catalog.Invalidator
			if cfg.RedisAddr != "" {
				rdb, err := config.NewRedis(cmd.Context(), cfg.RedisAddr)
				if err != nil {
					log.WithError(err).Warn("redis unavailable, cached questions expire on their own")
				} else {
					defer rdb.Close()
					inv = services.NewOpportunityService(repo, cache.NewRedisCache(rdb, "audition:"), cfg.QuestionCacheTTL)
				}
			}

			st, err := catalog.Apply(cmd.Context(), c, repo, inv)
			if err != nil {
				return err
			}
			log.WithField("opportunities", st.Opportunities).WithField("questions", st.Questions).Info("catalog applied")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "Catalog file")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run migrations before seeding")
	cmd.Flags().BoolVar(&validate, "validate", false, "Only validate the file")
	return cmd
}
