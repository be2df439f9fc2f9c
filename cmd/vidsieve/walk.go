// cmd/vidsieve/walk.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

type walkOptions struct {
	jsonOutput bool
	crossCheck bool
}

func newWalkCmd(global *globalOptions) *cobra.Command {
	opts := &walkOptions{}

	cmd := &cobra.Command{
		Use:   "walk <page.html|payload.json>",
		Short: "List the videos found in a page's structured data payload",
		Long: `Walk decodes the structured data embedded in a saved page (or a bare JSON
payload) and lists every video record it can build from it.

With --cross-check the records are compared against what the card extractor
reads from the rendered markup of the same page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger := global.logger(cfg, cmd.ErrOrStderr())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			payload, markup, err := decodePayload(args[0], data)
			if err != nil {
				return err
			}
			records := scraper.NewWalker(logger).Walk(payload)

			out := cmd.OutOrStdout()
			if opts.crossCheck {
				if markup == "" {
					return fmt.Errorf("--cross-check needs an HTML page")
				}
				extractor := scraper.NewExtractor(scraper.ExtractorConfig{Logger: logger, TitleTransforms: cfg.TitleTransforms})
				return crossCheck(out, records, markup, extractor)
			}
			if opts.jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(sortedRecords(records))
			}
			return printRecords(out, sortedRecords(records))
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print records as JSON")
	cmd.Flags().BoolVar(&opts.crossCheck, "cross-check", false, "Compare with the records extracted from the markup")
	return cmd
}

// decodePayload returns the structured payload and, for HTML input, the markup
func decodePayload(path string, data []byte) (interface{}, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var payload interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, "", utils.WrapError(err, utils.ErrCodeMalformedData, "failed to decode payload").
				WithContext("file", path)
		}
		return payload, "", nil
	}

	markup := string(data)
	payload, err := scraper.ExtractInitialData(markup)
	if err != nil {
		return nil, "", err
	}
	return payload, markup, nil
}

func sortedRecords(records map[string]types.VideoRecord) []types.VideoRecord {
	list := make([]types.VideoRecord, 0, len(records))
	for _, record := range records {
		list = append(list, record)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func printRecords(out io.Writer, records []types.VideoRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVIEWS\tDURATION\tPUBLISHED\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, dash(r.ViewCountText), dash(r.DurationText), dash(r.PublishTimeText), r.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records\n", len(records))
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// crossCheck prints every field where the payload and the markup disagree
func crossCheck(out io.Writer, records map[string]types.VideoRecord, markup string, extractor *scraper.Extractor) error {
	doc, err := scraper.ParseDocument(markup)
	if err != nil {
		return err
	}

	fromMarkup := make(map[string]types.VideoRecord)
	scraper.FindContainers(doc.Selection).Each(func(_ int, s *goquery.Selection) {
		record := extractor.Extract(s)
		if record.ID != "" {
			fromMarkup[record.ID] = record
		}
	})

	mismatches := 0
	for _, walked := range sortedRecords(records) {
		extracted, ok := fromMarkup[walked.ID]
		if !ok {
			fmt.Fprintf(out, "%s: not rendered\n", walked.ID)
			mismatches++
			continue
		}
		for _, diff := range diffRecords(walked, extracted) {
			fmt.Fprintf(out, "%s: %s\n", walked.ID, diff)
			mismatches++
		}
	}
	fmt.Fprintf(out, "%d payload records, %d rendered cards, %d mismatches\n", len(records), len(fromMarkup), mismatches)
	return nil
}

func diffRecords(walked, extracted types.VideoRecord) []string {
	var diffs []string
	compare := func(field, a, b string) {
		if a != b {
			diffs = append(diffs, fmt.Sprintf("%s payload=%q markup=%q", field, a, b))
		}
	}
	compare(types.FieldTitle, walked.Title, extracted.Title)
	compare(types.FieldViewCount, walked.ViewCountText, extracted.ViewCountText)
	compare(types.FieldDuration, walked.DurationText, extracted.DurationText)
	compare(types.FieldPublishTime, walked.PublishTimeText, extracted.PublishTimeText)
	return diffs
}
