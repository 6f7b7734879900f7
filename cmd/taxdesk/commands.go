package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"taxclient/internal/api"
	"taxclient/internal/apperr"
	"taxclient/internal/backend"
	"taxclient/internal/dashboard"
	"taxclient/internal/forms"
	"taxclient/internal/model"
	"taxclient/internal/session"
	"taxclient/internal/view"
)

// GetCmd reads one resource the way a page would and prints it.
type GetCmd struct {
	Path string `arg:"" help:"Resource path, e.g. /api/itr-forms."`
	JSON bool   `help:"Print the raw value as JSON."`
}

func (c *GetCmd) Run(g *Globals, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.open(ctx, os.Stderr)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer a.Close()
	return c.run(ctx, a, out)
}

func (c *GetCmd) run(ctx context.Context, a *app, out io.Writer) error {
	value, state, err := api.Get[any](ctx, a.client, c.Path)
	if c.JSON && err == nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	fmt.Fprintln(out, view.Render(state, view.SectionFor(c.Path)))
	if err != nil {
		return fmt.Errorf("get %s: %w", c.Path, err)
	}
	return nil
}

// FileItrCmd submits an ITR form read from YAML.
type FileItrCmd struct {
	File string `arg:"" type:"existingfile" help:"YAML file holding the ITR form."`
}

func (c *FileItrCmd) Run(g *Globals, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.open(ctx, os.Stderr)
	if err != nil {
		return fmt.Errorf("file-itr: %w", err)
	}
	defer a.Close()
	return c.run(ctx, a, out)
}

func (c *FileItrCmd) run(ctx context.Context, a *app, out io.Writer) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("file-itr: %w", err)
	}
	var input model.ItrFormInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("file-itr: parse %s: %w", c.File, err)
	}

	form, err := a.client.CreateItrForm(ctx, input)
	if err != nil {
		var validationErr *apperr.ValidationError
		if errors.As(err, &validationErr) {
			for _, field := range validationErr.Fields {
				fmt.Fprintf(out, "  %s: %s\n", field.Field, field.Message)
			}
		}
		return fmt.Errorf("file-itr: %w", err)
	}
	fmt.Fprintf(out, "Filed %s for AY %s (id %s), taxable income %s\n",
		form.FormType, form.AssessmentYear, form.ID, view.Rupees(forms.TaxableIncome(form.FormData)))

	_, state, err := a.client.ItrForms(ctx)
	fmt.Fprintln(out, view.Render(state, view.SectionFor(api.KeyItrForms)))
	return err
}

// DashboardCmd opens the live dashboard.
type DashboardCmd struct{}

func (d *DashboardCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.open(ctx, os.Stderr)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer a.Close()

	m := dashboard.NewModel(a.client, a.auth)
	defer m.Close()
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// DevBackendCmd serves the in-memory tax service for local development.
type DevBackendCmd struct {
	HTTPAddr     string `help:"HTTP listen address." default:"127.0.0.1:5000"`
	GRPCAddr     string `help:"gRPC listen address." default:"127.0.0.1:5001"`
	RequireToken bool   `help:"Reject calls without a bearer token signed with auth.token_secret."`
}

func (d *DevBackendCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return fmt.Errorf("dev-backend: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	memCfg := backend.MemoryConfig{Logger: logger}
	if d.RequireToken {
		if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
			return errors.New("dev-backend: --require-token needs auth.token_secret")
		}
		memCfg.Verifier = session.Verifier{Secret: cfg.Auth.TokenSecret}
	}
	mem := backend.NewMemory(memCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return d.serve(ctx, mem, logger)
}

func (d *DevBackendCmd) serve(ctx context.Context, mem *backend.Memory, logger *zap.Logger) error {
	httpListener, err := net.Listen("tcp", d.HTTPAddr)
	if err != nil {
		return fmt.Errorf("dev-backend: %w", err)
	}
	grpcListener, err := net.Listen("tcp", d.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("dev-backend: %w", err)
	}

	httpServer := &http.Server{Handler: backend.NewHandler(mem, logger), ReadHeaderTimeout: 5 * time.Second}
	grpcServer := grpc.NewServer()
	backend.RegisterGRPC(grpcServer, mem)

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	logger.Info("dev backend listening",
		zap.String("http", httpListener.Addr().String()),
		zap.String("grpc", grpcListener.Addr().String()))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
