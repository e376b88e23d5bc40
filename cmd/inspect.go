package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/exportkit/chatview/attachment"
	"github.com/exportkit/chatview/bundle"
	"github.com/exportkit/chatview/config"
	"github.com/exportkit/chatview/filter"
	"github.com/exportkit/chatview/stats"
	"github.com/exportkit/chatview/timestamp"
)

var (
	inspectReportDir      string
	inspectTopN           int
	inspectMaxBytes       int64
	inspectIncludeAuthor  []string
	inspectIncludeContent []string
	inspectExcludeAuthor  []string
	inspectExcludeContent []string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [bundle]",
	Short: "Analyse an export bundle and show statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundlePath := args[0]

		fmt.Println("Analyzing bundle:", bundlePath)

		filterOpts := filter.Options{
			IncludeAuthor:  inspectIncludeAuthor,
			IncludeContent: inspectIncludeContent,
			ExcludeAuthor:  inspectExcludeAuthor,
			ExcludeContent: inspectExcludeContent,
		}
		f, err := filter.New(filterOpts)
		if err != nil {
			return fmt.Errorf("create filter: %w", err)
		}

		sess, err := openSession(bundlePath, inspectMaxBytes, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = sess.Close()
		}()

		b, err := bundle.Load(sess.Dir(), nil)
		if err != nil {
			return err
		}
		store := attachment.NewStore(b.AttachmentsDir)

		authors := make(map[string]int)
		contentTypes := make(map[string]int)
		categories := make(map[string]int)

		var (
			skippedCount     int
			attachmentCount  int
			localFiles       int
			missingTimestamp int
			earliest, latest time.Time
		)

		for _, msg := range b.Messages {
			if !f.Allows(msg) {
				skippedCount++
				continue
			}

			authors[msg.Author]++

			if t, ok := timestamp.Parse(msg.CreatedAt); ok {
				if earliest.IsZero() || t.Before(earliest) {
					earliest = t
				}
				if latest.IsZero() || t.After(latest) {
					latest = t
				}
			} else {
				missingTimestamp++
			}

			for _, att := range msg.Attachments {
				attachmentCount++
				contentType := strings.ToLower(strings.TrimSpace(att.ContentType))
				if contentType == "" {
					contentType = "(none)"
				}
				contentTypes[contentType]++
				categories[string(attachment.Categorize(att.ContentType))]++
				if store.Exists(att.SavedAs) {
					localFiles++
				}
			}
		}

		messageCount := len(b.Messages) - skippedCount

		pterm.DefaultSection.Println("Bundle Statistics")
		pterm.Info.Printf("Messages: %d (skipped %d by filters)\n", messageCount, skippedCount)
		pterm.Info.Printf("Attachments: %d (%d with local files)\n", attachmentCount, localFiles)
		pterm.Info.Printf("Missing or unparseable timestamps: %d\n", missingTimestamp)
		if !earliest.IsZero() {
			pterm.Info.Printf("Date range: %s .. %s\n", earliest.Format(timestamp.DisplayLayout), latest.Format(timestamp.DisplayLayout))
		}
		if b.Metadata != nil {
			pterm.Info.Printf("Metadata keys: %d\n", len(b.Metadata))
		}
		pterm.Println()

		fmt.Printf("Top %d authors:\n", inspectTopN)
		stats.PrettyPrintTop(authors, inspectTopN)
		fmt.Println()

		if attachmentCount > 0 {
			fmt.Printf("Top %d attachment content types:\n", inspectTopN)
			stats.PrettyPrintTop(contentTypes, inspectTopN)
			fmt.Println()

			fmt.Println("Attachment categories:")
			stats.PrettyPrintTop(categories, len(categories))
			fmt.Println()
		}

		if inspectReportDir != "" {
			reports := map[string]map[string]int{
				"authors":       authors,
				"content_types": contentTypes,
				"categories":    categories,
			}
			if err := saveCSVReports(reports, inspectReportDir, 1000); err != nil {
				return fmt.Errorf("error saving CSV reports: %w", err)
			}
			fmt.Printf("Reports saved to directory: %s\n", inspectReportDir)
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectReportDir, "report-dir", "r", "", "Directory for CSV reports (no reports when empty)")
	inspectCmd.Flags().IntVarP(&inspectTopN, "top", "t", 10, "Number of top items to display in statistics")
	inspectCmd.Flags().Int64Var(&inspectMaxBytes, "max-bundle-size", config.DefaultMaxBundleBytes, "Ceiling on extracted bundle size in bytes (0 = unlimited)")
	inspectCmd.Flags().StringArrayVar(&inspectIncludeAuthor, "include-author", nil, "Regex allow-list applied to message authors (mutually exclusive with exclude flags)")
	inspectCmd.Flags().StringArrayVar(&inspectIncludeContent, "include-content", nil, "Regex allow-list applied to message content (mutually exclusive with exclude flags)")
	inspectCmd.Flags().StringArrayVar(&inspectExcludeAuthor, "exclude-author", nil, "Regex block-list applied to message authors (mutually exclusive with include flags)")
	inspectCmd.Flags().StringArrayVar(&inspectExcludeContent, "exclude-content", nil, "Regex block-list applied to message content (mutually exclusive with include flags)")
	rootCmd.AddCommand(inspectCmd)
}

func saveCSVReports(reports map[string]map[string]int, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for name, counts := range reports {
		filePath := filepath.Join(dir, fmt.Sprintf("report_%s.csv", name))

		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(file)

		if err := writer.Write([]string{"Value", "Count"}); err != nil {
			file.Close()
			return err
		}

		type pair struct {
			Key   string
			Value int
		}
		var pairs []pair
		for k, v := range counts {
			pairs = append(pairs, pair{k, v})
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].Value != pairs[j].Value {
				return pairs[i].Value > pairs[j].Value
			}
			return pairs[i].Key < pairs[j].Key
		})

		for i := 0; i < limit && i < len(pairs); i++ {
			record := []string{
				pairs[i].Key,
				strconv.Itoa(pairs[i].Value),
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}

		writer.Flush()
		file.Close()

		if err := writer.Error(); err != nil {
			return err
		}
	}

	return nil
}
