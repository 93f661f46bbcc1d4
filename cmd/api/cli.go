package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpadp "purchase-order-backend/internal/adapter/http"
	"purchase-order-backend/internal/adapter/repository/postgres"
	ucApproval "purchase-order-backend/internal/usecase/approval"
)

const shutdownTimeout = 10 * time.Second

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "api",
		Short:         "Purchase order approval service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newIssueLinkCmd())

	return root
}

// Execute runs the CLI until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{redis: true, usecases: true})
			if err != nil {
				return err
			}
			defer a.close()

			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			health := httpadp.NewHandler(
				httpadp.Check{Name: "postgres", Ping: sqlDB.PingContext},
				httpadp.Check{Name: "redis", Ping: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }},
			)

			e := httpadp.NewRouter(httpadp.RouterConfig{
				Health:         health,
				Orders:         httpadp.NewOrderHandler(a.orders, a.log),
				Approvals:      httpadp.NewApprovalHandler(a.approvals, a.log),
				Redis:          a.redis,
				IdempotencyTTL: a.cfg.IdempotencyTTL(),
				RateLimitRPS:   a.cfg.RateLimitRPS,
				RateLimitBurst: a.cfg.RateLimitBurst,
				Metrics:        promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg}),
				Log:            a.log,
			})

			addr := ":" + a.cfg.AppPort
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", zap.String("addr", addr), zap.String("env", a.cfg.AppEnv))
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(stopCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.db.WithContext(cmd.Context()).AutoMigrate(postgres.Models()...); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newIssueLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-link",
		Short: "Issue an approval link for an order and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := cmd.Flags().GetString("order")
			phone, _ := cmd.Flags().GetString("phone")

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{usecases: true})
			if err != nil {
				return err
			}
			defer a.close()

			orderID := ref
			if _, err := uuid.Parse(ref); err != nil {
				o, err := a.orders.GetByNumber(ctx, ref)
				if err != nil {
					return fmt.Errorf("order %s: %w", ref, err)
				}
				orderID = o.ID
			}

			res, err := a.approvals.Issue(ctx, orderID, ucApproval.IssueOptions{Phone: phone})
			if err != nil {
				return fmt.Errorf("issue token for %s: %w", ref, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order:    %s (%s)\n", res.Order.Number, res.Order.Status)
			fmt.Fprintf(out, "expires:  %s\n", res.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintf(out, "link:     %s\n", res.URL)
			if res.WhatsAppURL != "" {
				fmt.Fprintf(out, "whatsapp: %s\n", res.WhatsAppURL)
			}
			fmt.Fprintf(out, "\n%s\n", res.Message)
			return nil
		},
	}
	cmd.Flags().String("order", "", "order id or number (e.g. OC-2025-01-001)")
	cmd.Flags().String("phone", "", "approver phone, overrides APPROVER_WHATSAPP")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}
