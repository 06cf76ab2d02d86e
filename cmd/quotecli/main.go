// quotecli quotes a supply list from the command line, without the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/match"
	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/contractoros/quote-engine/internal/report"
)

func main() {
	app := &cli.App{
		Name:  "quotecli",
		Usage: "normalize and quote contractor supply lists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Value:   "./data/catalog.json",
				Usage:   "path to catalog file (.json or .db)",
				EnvVars: []string{"QUOTE_CATALOG"},
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Value: match.DefaultThreshold,
				Usage: "fuzzy match threshold",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "normalize",
				Usage:     "parse a supply list into matched items",
				ArgsUsage: "[file]",
				Action:    runNormalize,
			},
			{
				Name:      "quote",
				Usage:     "quote a supply list for a location",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Required: true, Usage: "delivery zip code"},
					&cli.StringFlag{Name: "markup", Value: "0", Usage: "markup percentage"},
					&cli.StringFlag{Name: "tax", Value: "0", Usage: "tax percentage"},
					&cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json or markdown"},
				},
				Action: runQuote,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildEngine(c *cli.Context) (*pipeline.Engine, error) {
	cat, err := catalog.Load(c.String("catalog"))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	cfg := match.DefaultConfig()
	cfg.Threshold = c.Float64("threshold")
	canon, err := match.NewCanonicalizer(cat, cfg)
	if err != nil {
		return nil, err
	}
	var ai normalize.Normalizer
	if a, aiErr := normalize.NewAnthropicNormalizerFromEnv(); aiErr == nil {
		ai = a
	}
	return pipeline.NewEngine(
		normalize.NewFallback(ai, normalize.NewRuleNormalizer()),
		canon,
		pricing.NewAggregator(cat),
	), nil
}

// readSupplyList reads the first positional arg, or stdin when absent.
func readSupplyList(c *cli.Context) (string, error) {
	if path := c.Args().First(); path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(blob), nil
	}
	blob, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

func runNormalize(c *cli.Context) error {
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	text, err := readSupplyList(c)
	if err != nil {
		return err
	}
	res, err := engine.Normalize(context.Background(), pipeline.Input{Text: text})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runQuote(c *cli.Context) error {
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	text, err := readSupplyList(c)
	if err != nil {
		return err
	}
	markup, err := decimal.NewFromString(c.String("markup"))
	if err != nil {
		return fmt.Errorf("invalid markup %q", c.String("markup"))
	}
	tax, err := decimal.NewFromString(c.String("tax"))
	if err != nil {
		return fmt.Errorf("invalid tax %q", c.String("tax"))
	}
	res, err := engine.Quote(context.Background(), pipeline.Input{Text: text}, c.String("location"), markup, tax)
	if err != nil {
		return err
	}
	switch c.String("format") {
	case "markdown":
		fmt.Print(report.Markdown(res))
		return nil
	case "json":
		return printJSON(res)
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
