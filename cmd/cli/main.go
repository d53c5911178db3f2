package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/client"
	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("command failed")

type cliApp struct {
	baseURL string
	timeout time.Duration
	asJSON  bool
	verbose bool

	out       io.Writer
	newClient func() apiClient
	now       func() time.Time
}

// apiClient is the subset of client.Client the commands use.
type apiClient interface {
	CreatePortfolio(ctx context.Context, req dto.CreatePortfolioRequest) (*dto.PortfolioResponse, error)
	ListPortfolios(ctx context.Context, limit, offset int) ([]*dto.PortfolioResponse, error)
	ListOperations(ctx context.Context, portfolioID string, limit, offset int) ([]*dto.OperationResponse, error)
	Ledger(ctx context.Context, portfolioID string) (*domain.Ledger, error)
	CreateOperation(ctx context.Context, portfolioID string, req dto.CreateOperationRequest) (*dto.OperationResponse, error)
	EditOperation(ctx context.Context, portfolioID, operationID string, req dto.PatchOperationRequest) (*dto.OperationResponse, error)
	DeleteOperation(ctx context.Context, portfolioID, operationID string) error
	Holdings(ctx context.Context, portfolioID string, at *time.Time) (*dto.HoldingsResponse, error)
	Valuation(ctx context.Context, portfolioID string, req dto.ValuationRequest) (*dto.ValuationResponse, error)
	Rate(ctx context.Context) (*dto.ExchangeRateResponse, error)
	LedgerConsistency(ctx context.Context, portfolioID string) (*dto.ConsistencyReportResponse, error)
}

func main() {
	_ = godotenv.Load()

	if err := newApp(os.Stdout).rootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cliApp {
	app := &cliApp{out: out, now: time.Now}
	app.newClient = func() apiClient {
		level := zerolog.WarnLevel
		if app.verbose {
			level = zerolog.DebugLevel
		}
		return client.New(client.Config{
			BaseURL:    app.baseURL,
			HTTPClient: &http.Client{Timeout: app.timeout},
			Logger:     zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level),
			MaxRetries: 2,
		})
	}
	return app
}

func (a *cliApp) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "goportfolio-cli",
		Short:         "GoPortfolio CLI tool",
		Long:          `A command line interface for recording operations and inspecting portfolios through the GoPortfolio API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("GOPORTFOLIO_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVar(&a.baseURL, "url", defaultURL, "Base URL of the GoPortfolio API")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print raw JSON responses")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log retries and requests")

	rootCmd.AddCommand(
		a.portfolioCmd(),
		a.operationCmd(),
		a.holdingsCmd(),
		a.valuationCmd(),
		a.rateCmd(),
		a.ledgerCmd(),
	)

	return rootCmd
}

func (a *cliApp) portfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio operations",
	}

	var owner string
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newClient().CreatePortfolio(cmd.Context(), dto.CreatePortfolioRequest{Name: args[0], OwnerID: owner})
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, p)
			}
			fmt.Fprintf(a.out, "Created portfolio %s (%s)\n", p.ID, p.Name)
			return nil
		},
	}
	createCmd.Flags().StringVar(&owner, "owner", "", "Owner ID")

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List portfolios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portfolios, err := a.newClient().ListPortfolios(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, portfolios)
			}
			tw := newTable(a.out, "ID", "NAME", "OWNER", "CREATED")
			for _, p := range portfolios {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, truncate(p.Name, 40), p.OwnerID, p.CreatedAt.Format(time.DateOnly))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}

type operationFlags struct {
	asset    string
	kind     string
	currency string
	quantity string
	price    string
	at       string
	noCheck  bool
}

func (f *operationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.asset, "asset", "", "Asset symbol, e.g. GGAL")
	cmd.Flags().StringVar(&f.kind, "kind", "", "BUY or SELL")
	cmd.Flags().StringVar(&f.currency, "currency", "", "ARS or USD")
	cmd.Flags().StringVar(&f.quantity, "qty", "", "Quantity")
	cmd.Flags().StringVar(&f.price, "price", "", "Unit price")
	cmd.Flags().StringVar(&f.at, "at", "", "Execution time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.noCheck, "no-check", false, "Skip the local consistency check")
}

func (a *cliApp) operationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operation",
		Short: "Record, edit and inspect operations",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list PORTFOLIO",
		Short: "List operations in execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.newClient().ListOperations(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, ops)
			}
			tw := newTable(a.out, "ID", "EXECUTED", "KIND", "ASSET", "QTY", "PRICE", "CUR")
			for _, op := range ops {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					op.ID, op.ExecutedAt.Format(time.RFC3339), op.Kind, op.AssetSymbol,
					op.Quantity, op.UnitPrice, op.Currency)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	var addFlags operationFlags
	addCmd := &cobra.Command{
		Use:   "add PORTFOLIO",
		Short: "Record a buy or sell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := addFlags.createRequest()
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), args[0], addFlags.noCheck,
				func(portfolioID string) (domain.Mutation, error) {
					op, err := usecase.BuildOperation(req.ToUseCaseInput(portfolioID), a.now().UTC())
					if err != nil {
						return nil, err
					}
					return domain.CreateMutation{Operation: op}, nil
				},
				func(ctx context.Context, c apiClient) (any, error) {
					return c.CreateOperation(ctx, args[0], req)
				})
		},
	}
	addFlags.register(addCmd)

	var editFlags operationFlags
	editCmd := &cobra.Command{
		Use:   "edit PORTFOLIO OPERATION",
		Short: "Edit fields of an operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := editFlags.patchRequest(cmd)
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), args[0], editFlags.noCheck,
				func(string) (domain.Mutation, error) {
					patch, err := req.ToPatch()
					if err != nil {
						return nil, err
					}
					if patch.IsEmpty() {
						return nil, domain.ErrEmptyPatch
					}
					return domain.EditMutation{ID: args[1], Patch: patch}, nil
				},
				func(ctx context.Context, c apiClient) (any, error) {
					return c.EditOperation(ctx, args[0], args[1], req)
				})
		},
	}
	editFlags.register(editCmd)

	var noCheck bool
	deleteCmd := &cobra.Command{
		Use:   "delete PORTFOLIO OPERATION",
		Short: "Delete an operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd.Context(), args[0], noCheck,
				func(string) (domain.Mutation, error) {
					return domain.DeleteMutation{ID: args[1]}, nil
				},
				func(ctx context.Context, c apiClient) (any, error) {
					return map[string]string{"deleted": args[1]}, c.DeleteOperation(ctx, args[0], args[1])
				})
		},
	}
	deleteCmd.Flags().BoolVar(&noCheck, "no-check", false, "Skip the local consistency check")

	cmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd)
	return cmd
}

// mutate validates the mutation against the portfolio's ledger before
// sending it, tracking it as a pending mutation until the server answers.
func (a *cliApp) mutate(
	ctx context.Context,
	portfolioID string,
	skipCheck bool,
	build func(portfolioID string) (domain.Mutation, error),
	send func(ctx context.Context, c apiClient) (any, error),
) error {
	c := a.newClient()

	m, err := build(portfolioID)
	if err != nil {
		return err
	}

	var pending *domain.PendingMutation
	if !skipCheck {
		ledger, err := c.Ledger(ctx, portfolioID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}

		pending, err = domain.NewPendingMutation(ledger, m)
		if err != nil {
			a.printRejection(err)
			return errReported
		}
	}

	result, err := send(ctx, c)
	if err != nil {
		if pending != nil {
			_ = pending.Rollback(err)
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			fmt.Fprintf(a.out, "Rejected by server: %s\n", apiErr.Response.Message)
			printDetails(a.out, apiErr.Response.Details)
			return errReported
		}
		return err
	}

	if pending != nil {
		if err := pending.Commit(); err != nil {
			return err
		}
	}

	if a.asJSON {
		return printJSON(a.out, result)
	}

	fmt.Fprintf(a.out, "Operation %s accepted\n", domain.MutationKind(m))
	if pending != nil {
		a.printLedgerHoldings(pending.Ledger(), portfolioID)
	}
	return nil
}

func (a *cliApp) printRejection(err error) {
	fmt.Fprintf(a.out, "Rejected locally: %v\n", err)
	printDetails(a.out, dto.NegativeHoldingDetails(err))
}

func (a *cliApp) printLedgerHoldings(ledger *domain.Ledger, portfolioID string) {
	tw := newTable(a.out, "ASSET", "QTY", "AVG COST", "CUR")
	for _, h := range domain.ComputeHoldings(ledger) {
		if h.PortfolioID != portfolioID || h.IsClosed() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.AssetSymbol, h.Quantity, h.AverageCost.StringFixed(2), h.Currency)
	}
	_ = tw.Flush()
}

func (f *operationFlags) createRequest() (dto.CreateOperationRequest, error) {
	if f.asset == "" || f.kind == "" || f.currency == "" || f.quantity == "" || f.price == "" {
		return dto.CreateOperationRequest{}, errors.New("--asset, --kind, --currency, --qty and --price are required")
	}

	qty, err := decimal.NewFromString(f.quantity)
	if err != nil {
		return dto.CreateOperationRequest{}, fmt.Errorf("invalid --qty: %w", err)
	}
	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return dto.CreateOperationRequest{}, fmt.Errorf("invalid --price: %w", err)
	}
	at, err := parseWhen(f.at)
	if err != nil {
		return dto.CreateOperationRequest{}, err
	}

	return dto.CreateOperationRequest{
		AssetSymbol: f.asset,
		Kind:        f.kind,
		Currency:    f.currency,
		Quantity:    qty,
		UnitPrice:   price,
		ExecutedAt:  at,
	}, nil
}

// patchRequest includes only the flags the user set.
func (f *operationFlags) patchRequest(cmd *cobra.Command) (dto.PatchOperationRequest, error) {
	var req dto.PatchOperationRequest
	changed := cmd.Flags().Changed

	if changed("asset") {
		req.AssetSymbol = &f.asset
	}
	if changed("kind") {
		req.Kind = &f.kind
	}
	if changed("currency") {
		req.Currency = &f.currency
	}
	if changed("qty") {
		qty, err := decimal.NewFromString(f.quantity)
		if err != nil {
			return req, fmt.Errorf("invalid --qty: %w", err)
		}
		req.Quantity = &qty
	}
	if changed("price") {
		price, err := decimal.NewFromString(f.price)
		if err != nil {
			return req, fmt.Errorf("invalid --price: %w", err)
		}
		req.UnitPrice = &price
	}
	if changed("at") {
		at, err := parseWhen(f.at)
		if err != nil {
			return req, err
		}
		req.ExecutedAt = at
	}

	return req, nil
}

func (a *cliApp) holdingsCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "holdings PORTFOLIO",
		Short: "Show quantity and average cost per asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			resp, err := a.newClient().Holdings(cmd.Context(), args[0], when)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, resp)
			}
			tw := newTable(a.out, "ASSET", "QTY", "AVG COST", "COST BASIS", "CUR")
			for _, h := range resp.Holdings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					h.AssetSymbol, h.Quantity, h.AverageCost.StringFixed(2), h.CostBasis.StringFixed(2), h.Currency)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Historical point in time (RFC 3339 or YYYY-MM-DD)")
	return cmd
}

func (a *cliApp) valuationCmd() *cobra.Command {
	var prices []string
	cmd := &cobra.Command{
		Use:   "valuation PORTFOLIO",
		Short: "Value a portfolio at the given prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parsePrices(prices)
			if err != nil {
				return err
			}
			resp, err := a.newClient().Valuation(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, resp)
			}

			if resp.Warning != "" {
				fmt.Fprintf(a.out, "Warning: %s\n", resp.Warning)
			}
			tw := newTable(a.out, "ASSET", "QTY", "VALUE", "GAIN", "GAIN %", "SHARE %")
			for _, p := range resp.Positions {
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
					p.AssetSymbol, p.Quantity, p.CurrentValue.StringFixed(2), p.Currency,
					p.Gain.StringFixed(2), p.GainPct.StringFixed(2), p.PortfolioSharePct.StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Total: %s ARS / %s USD\n", resp.TotalValueARS.StringFixed(2), resp.TotalValueUSD.StringFixed(2))
			if resp.Rate != nil {
				fmt.Fprintf(a.out, "Rate: buy %s / sell %s\n", resp.Rate.Buy, resp.Rate.Sell)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prices, "price", nil, "Live price as SYM=AMOUNT[:CUR], repeatable")
	return cmd
}

func (a *cliApp) rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Show the current ARS/USD exchange rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := a.newClient().Rate(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.out, rate)
			}
			stale := ""
			if rate.Stale {
				stale = " (stale)"
			}
			fmt.Fprintf(a.out, "Buy: %s\nSell: %s\nSpread: %s\nFetched: %s%s\n",
				rate.Buy, rate.Sell, rate.Spread, rate.FetchedAt.Format(time.RFC3339), stale)
			return nil
		},
	}
}

func (a *cliApp) ledgerCmd() *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var portfolioID string
	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.newClient().LedgerConsistency(cmd.Context(), portfolioID)
			if err != nil {
				return err
			}
			if a.asJSON {
				if err := printJSON(a.out, report); err != nil {
					return err
				}
			} else {
				status := "PASSED"
				if !report.Consistent {
					status = "FAILED"
				}
				fmt.Fprintf(a.out, "Consistency check %s\n", status)
				fmt.Fprintf(a.out, "Partitions: %d, operations: %d\n", report.Partitions, report.Operations)
				for _, v := range report.Violations {
					fmt.Fprintf(a.out, "  %s/%s at %s: %s (shortfall %s)\n",
						v.PortfolioID, v.AssetSymbol, v.At.Format(time.DateOnly), v.Reason, v.Shortfall)
				}
			}
			if !report.Consistent {
				return errReported
			}
			return nil
		},
	}
	consistencyCmd.Flags().StringVar(&portfolioID, "portfolio", "", "Only check this portfolio")

	ledgerCmd.AddCommand(consistencyCmd)
	return ledgerCmd
}

// parsePrices parses SYM=AMOUNT[:CUR] pairs.
func parsePrices(pairs []string) (dto.ValuationRequest, error) {
	req := dto.ValuationRequest{Prices: make(map[string]dto.PriceRequest, len(pairs))}
	for _, pair := range pairs {
		symbol, rest, ok := strings.Cut(pair, "=")
		if !ok || symbol == "" || rest == "" {
			return req, fmt.Errorf("invalid --price %q, want SYM=AMOUNT[:CUR]", pair)
		}
		amountStr, currency, _ := strings.Cut(rest, ":")

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return req, fmt.Errorf("invalid amount in --price %q: %w", pair, err)
		}
		if currency != "" {
			if _, err := domain.ParseCurrency(currency); err != nil {
				return req, err
			}
		}
		req.Prices[domain.NormalizeAssetSymbol(symbol)] = dto.PriceRequest{Amount: amount, Currency: strings.ToUpper(currency)}
	}
	return req, nil
}

func parseWhen(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q, want RFC 3339 or YYYY-MM-DD", s)
	}
	return &d, nil
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func printDetails(w io.Writer, details map[string]any) {
	for _, k := range []string{"asset_symbol", "date", "shortfall", "operation_id"} {
		if v, ok := details[k]; ok && v != "" {
			fmt.Fprintf(w, "  %s: %v\n", k, v)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
