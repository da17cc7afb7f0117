package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusafe/blackboard/internal/printer"
	"github.com/campusafe/blackboard/pkg/graph"
)

var (
	casesAPIAddr string
	casesJSON    bool
)

var casesCmd = &cobra.Command{
	Use:   "cases [CASE_ID]",
	Short: "List or show case snapshots from a running engine",
	Long: `cases queries a running "blackboardd serve" instance's case-snapshot API.

With no CASE_ID, lists every case currently on the board. With a CASE_ID,
shows that case's full derived snapshot (summary, location, story, and any
metadata overrides).`,
	RunE: runCases,
}

func init() {
	casesCmd.Flags().StringVar(&casesAPIAddr, "api", "http://localhost:8090", "address of a running serve instance's case-snapshot API")
	casesCmd.Flags().BoolVar(&casesJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(casesCmd)
}

func runCases(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	if len(args) == 1 {
		return showCase(client, args[0])
	}
	return listCases(client)
}

func listCases(client *http.Client) error {
	resp, err := client.Get(casesAPIAddr + "/cases")
	if err != nil {
		return printer.Error("Could not reach the case-snapshot API",
			err.Error(),
			[]string{"Check that 'blackboardd serve' is running and --api points at it."})
	}
	defer resp.Body.Close()

	var summaries []graph.CaseSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return fmt.Errorf("decoding case list: %w", err)
	}

	if len(summaries) == 0 {
		printer.Info("No cases on the board yet.\n")
		return nil
	}

	if casesJSON {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling case list: %w", err)
		}
		printer.Println(string(data))
		return nil
	}

	printer.Printf("%-14s %-8s %s\n", "CASE", "REPORTS", "SUMMARY")
	for _, c := range summaries {
		printer.Printf("%-14s %-8d %s\n", c.CaseID, c.ReportCount, c.Metadata.Summary)
	}
	return nil
}

func showCase(client *http.Client, caseID string) error {
	resp, err := client.Get(casesAPIAddr + "/cases/" + caseID)
	if err != nil {
		return printer.Error("Could not reach the case-snapshot API",
			err.Error(),
			[]string{"Check that 'blackboardd serve' is running and --api points at it."})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return printer.Error(fmt.Sprintf("case '%s' not found", caseID),
			"No case with that id exists on the board.",
			[]string{"List known cases:\n  blackboardd cases"})
	}

	var snapshot graph.CaseSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("decoding case snapshot: %w", err)
	}

	if casesJSON {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling case snapshot: %w", err)
		}
		printer.Println(string(data))
		return nil
	}

	printer.Step("Case %s\n", snapshot.CaseID)
	printer.Printf("  Location: %s\n", snapshot.Location)
	printer.Printf("  Summary:  %s\n", snapshot.Summary)
	printer.Printf("  Story:\n%s\n", snapshot.Story)
	return nil
}
