// Package cli is the operator-facing console. Each command builds the store
// for one admin page, runs the page's operations against it and renders the
// result as a table, JSON or YAML.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/application/validation"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/auth"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/courier"
	"github.com/erp/console/internal/infrastructure/storage"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitValidation = 3
	ExitConflict   = 4
	ExitNetwork    = 5
)

// Deps are the collaborators commands run against
type Deps struct {
	Config  *config.Config
	API     *client.Client
	Sales   *client.Client
	Courier *courier.Adapter
	Storage storage.Store
	// Session is set when the console logs in with credentials
	Session auth.SessionSource
	Logger  *zap.Logger
	Out     io.Writer
	Err     io.Writer
	Now     func() time.Time
}

// App dispatches console commands
type App struct {
	deps      Deps
	cfg       *config.Config
	validator *validation.Validator
	render    *Renderer
	logger    *zap.Logger
}

// New creates the console with output in format
func New(deps Deps, format string) (*App, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.API == nil {
		return nil, errors.New("api client is required")
	}
	if deps.Sales == nil {
		deps.Sales = deps.API
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r, err := NewRenderer(deps.Out, format, deps.Config.App.Locale, deps.Config.App.Currency)
	if err != nil {
		return nil, err
	}

	return &App{
		deps:      deps,
		cfg:       deps.Config,
		validator: validation.New(),
		render:    r,
		logger:    deps.Logger,
	}, nil
}

// Run executes the command named by args[0]
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return usageErrorf("", "a command is required")
	}

	cmd, rest := args[0], args[1:]
	a.logger.Debug("running command", zap.String("command", cmd), zap.Strings("args", rest))

	switch cmd {
	case "products":
		return a.runProducts(ctx, rest)
	case "inventory":
		return a.runInventory(ctx, rest)
	case "dashboard":
		return a.runDashboard(ctx, rest)
	case "orders":
		return a.runOrders(ctx, rest)
	case "dispatch":
		return a.runDispatch(ctx, rest)
	case "shipments":
		return a.runShipments(ctx, rest)
	case "track":
		return a.runTrack(ctx, rest)
	case "login":
		return a.runLogin(ctx, rest)
	case "help", "-h", "-help", "--help":
		a.Usage()
		return nil
	default:
		a.Usage()
		return usageErrorf("", "unknown command %q", cmd)
	}
}

// Usage prints the command summary
func (a *App) Usage() {
	fmt.Fprint(a.deps.Err, usage)
}

const usage = `ERP Console - admin operations from the terminal

USAGE:
    console [global options] <command> [arguments]

COMMANDS:
    products list [-page n] [-q text]         List products, 7 per page
    products show <id>                        Show one product with image links
    products create -name .. -amount .. -image path [-image path]...
    products update <id> [-name ..] [-slot i=path] [-remove-slot i]
    products delete <id>
    inventory [-page n] [-q text] [-low n]    Stock per product
    dashboard [-year n]                       Units sold per month
    orders list [-page n]                     List orders, 6 per page
    orders set-status <id> <status>           Pending, Ready for Dispatch, Delivered
    dispatch list [-page n] [-q awb]          Courier orders, latest first
    dispatch pickup <id> -ready .. -close .. -weight ..
    dispatch export <id> [-kind shipment|invoice]
    shipments [-page n] [-q text]             All shipments
    track <awb>                               Tracking details for an AWB number
    login                                     Log in and show the session

GLOBAL OPTIONS:
    -config <path>     Configuration file (default: console.toml)
    -o <format>        Output format: table, json, yaml
    -v                 Debug logging
    -metrics           Print request metrics on exit
    -version           Show version information

Image paths are keys in the configured storage (a local directory or an
S3 bucket). Times accept RFC3339, "2006-01-02 15:04" or an offset like "+2h".
`

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	var usageErr *UsageError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.As(err, &usageErr):
		return ExitUsage
	case shared.IsValidation(err):
		return ExitValidation
	case shared.IsConflict(err):
		return ExitConflict
	case shared.IsNetwork(err):
		return ExitNetwork
	default:
		return ExitFailure
	}
}

// Describe renders err as the one-line message shown to the operator
func Describe(err error) string {
	var ne shared.NetworkError
	if errors.As(err, &ne) {
		if status := ne.StatusCode(); status != 0 {
			return fmt.Sprintf("server error (%d): %s", status, ne.UserMessage())
		}
		return ne.UserMessage()
	}
	if errors.Is(err, shared.ErrNothingToSave) {
		return "nothing to save: no field was changed"
	}
	return err.Error()
}

func storeOptions[T any](a *App, name string, pageSize int, match func(T, string) bool) store.Options[T] {
	return store.Options[T]{
		Name:     name,
		PageSize: pageSize,
		Match:    match,
		Logger:   a.logger,
	}
}

// listPage loads s and positions it on page with query applied
func listPage[T store.Identifiable, D any](ctx context.Context, s *store.Store[T, D], page int, query string) (listView[T], error) {
	if err := s.Load(ctx); err != nil {
		return listView[T]{}, err
	}
	if query != "" {
		if err := s.Search(query); err != nil {
			return listView[T]{}, err
		}
	}
	if page > 1 {
		if err := s.SetPage(page); err != nil {
			return listView[T]{}, err
		}
	}
	return newListView(s.Snapshot()), nil
}

// focus selects id wherever it sits in the collection
func focus[T store.Identifiable, D any](s *store.Store[T, D], id string) error {
	page, ok := s.PageOf(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	if err := s.SetPage(page); err != nil {
		return err
	}
	return s.Select(id)
}

func find[T store.Identifiable](items []T, id string) (T, bool) {
	for _, item := range items {
		if item.ResourceID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// afterSave looks id up once a save has completed. The store may have
// reloaded the collection, so the item can be gone.
func afterSave[T store.Identifiable](items []T, id string) (T, error) {
	item, ok := find(items, id)
	if !ok {
		return item, fmt.Errorf("saved, but %s is no longer listed: %w", id, shared.ErrNotFound)
	}
	return item, nil
}

// mediaURL resolves a server-relative image reference against the media host
func mediaURL(base, ref string) string {
	if ref == "" || strings.Contains(ref, "://") || base == "" {
		return ref
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
}
