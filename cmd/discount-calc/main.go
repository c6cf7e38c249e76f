// Command discount-calc prices sample carts with the configured discount
// rules and prints the results.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appkg "github.com/xenking/kart-discounts/internal/app"
	"github.com/xenking/kart-discounts/internal/domain/pricing"
	"github.com/xenking/kart-discounts/internal/fixture"
	"github.com/xenking/kart-discounts/internal/wire"
)

// Config is the calculator configuration. Rules are shared with the server.
type Config struct {
	Scenarios []string `usage:"Scenario files (.json or .json.gz); empty runs the built-in scenarios"`
	Workers   int      `default:"4" usage:"Scenarios evaluated concurrently"`
	Output    string   `default:"text" usage:"Output format: text or json"`
	Currency  string   `default:"₹" usage:"Currency symbol used in discount messages"`
	Rules     appkg.RulesConfig
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg Config
		if err := appkg.LoaderFor(&cfg).Load(); err != nil {
			return errors.Wrap(err, "load config")
		}
		return run(ctx, lg, cfg, os.Stdout)
	})
}

type outcome struct {
	scenario fixture.Scenario
	result   *pricing.Result
}

func run(ctx context.Context, lg *zap.Logger, cfg Config, out io.Writer) error {
	if cfg.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", cfg.Workers)
	}

	svc, err := appkg.NewPricingService(cfg.Rules, pricing.WithCurrency(cfg.Currency))
	if err != nil {
		return errors.Wrap(err, "build discount rules")
	}

	scenarios, err := loadScenarios(cfg.Scenarios)
	if err != nil {
		return err
	}
	lg.Info("Evaluating scenarios",
		zap.Int("count", len(scenarios)),
		zap.Strings("rules", svc.Rules()),
		zap.Int("workers", cfg.Workers),
	)

	outcomes := make([]outcome, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, s := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := svc.CalculateCartDiscounts(ctx, s.Items, s.Customer, s.Payment, s.VoucherCode)
			if err != nil {
				return errors.Wrapf(err, "scenario %q", s.Name)
			}
			outcomes[i] = outcome{scenario: s, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Output) {
	case "json":
		return writeJSON(out, outcomes)
	case "text":
		return writeText(out, outcomes)
	default:
		return errors.Errorf("unknown output format %q", cfg.Output)
	}
}

func loadScenarios(paths []string) ([]fixture.Scenario, error) {
	if len(paths) == 0 {
		return fixture.Builtin(), nil
	}
	var all []fixture.Scenario
	for _, p := range paths {
		s, err := fixture.LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, s...)
	}
	return all, nil
}

func writeText(w io.Writer, outcomes []outcome) error {
	for _, o := range outcomes {
		if _, err := fmt.Fprintf(w, "== %s: %s\nOriginal: %s\nFinal:    %s\n%s\n\n",
			o.scenario.Name,
			o.scenario.Description,
			o.result.OriginalPrice.StringFixed(2),
			o.result.FinalPrice.StringFixed(2),
			o.result.Message,
		); err != nil {
			return errors.Wrap(err, "write")
		}
	}
	return nil
}

func writeJSON(w io.Writer, outcomes []outcome) error {
	var e jx.Encoder
	e.SetIdent(2)
	e.ArrStart()
	for _, o := range outcomes {
		e.ObjStart()
		e.FieldStart("scenario")
		e.Str(o.scenario.Name)
		e.FieldStart("result")
		wire.EncodeResult(&e, "", o.result)
		e.ObjEnd()
	}
	e.ArrEnd()
	if _, err := w.Write(append(e.Bytes(), '\n')); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}
