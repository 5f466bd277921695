package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shopdash/shopdash/internal/analytics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks against the analytics API",
	Long: `Run a series of diagnostic checks against the analytics API:

  1. Reachability: can we connect at all?
  2. Server health: is /health reporting OK?
  3. Database: does /ready reach the database?
  4. Datasets: does the dashboard return every dataset?

Use this command to diagnose connectivity or configuration issues.

Examples:
  shopdash doctor
  shopdash doctor --server https://analytics.example.com/api`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

type checkResult struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	server, err := resolveServer(serverFlag)
	if err != nil {
		return err
	}
	if err := validateServer(server); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "Running health checks against %s\n\n", server)

	checks := doctorChecks(NewClientWithURL(server))

	allOK := true
	for _, c := range checks {
		icon := "✓"
		if !c.ok {
			icon = "✗"
			allOK = false
		}
		fmt.Fprintf(out, "  %s  %-15s %s\n", icon, c.name, c.detail)
	}
	fmt.Fprintln(out)

	if !allOK {
		fmt.Fprintf(cmd.ErrOrStderr(), "Some checks failed ✗\n")
		return errors.New("health check failed")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "All checks passed ✓\n")
	return nil
}

// doctorChecks runs every check in order. Later checks are skipped once the
// server is unreachable.
func doctorChecks(client *APIClient) []checkResult {
	reach := checkReachable(client)
	if !reach.ok {
		return []checkResult{reach}
	}
	return []checkResult{
		reach,
		checkServerHealth(client),
		checkDatabase(client),
		checkDatasets(client),
	}
}

func checkReachable(client *APIClient) checkResult {
	start := time.Now()
	resp, err := client.HTTPClient.Get(client.BaseURL + "/health")
	elapsed := time.Since(start)

	if err != nil {
		return checkResult{
			name:   "Reachability",
			ok:     false,
			detail: fmt.Sprintf("cannot connect: %v", err),
		}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return checkResult{
			name:   "Reachability",
			ok:     false,
			detail: "connected, but /health not found (does the URL end in /api?)",
		}
	}

	return checkResult{
		name:   "Reachability",
		ok:     true,
		detail: fmt.Sprintf("connected (%dms)", elapsed.Milliseconds()),
	}
}

func checkServerHealth(client *APIClient) checkResult {
	health, err := client.Health()
	if err != nil {
		return checkResult{
			name:   "Server Health",
			ok:     false,
			detail: fmt.Sprintf("health endpoint error: %v", err),
		}
	}

	detail := fmt.Sprintf("status=%s", health.Status)
	if ts, err := time.Parse(time.RFC3339Nano, health.Timestamp); err == nil {
		skew := time.Since(ts)
		if skew < 0 {
			skew = -skew
		}
		if skew > time.Minute {
			detail += fmt.Sprintf(", server clock off by %s", skew.Round(time.Second))
		}
	}

	return checkResult{
		name:   "Server Health",
		ok:     health.Status == "OK",
		detail: detail,
	}
}

func checkDatabase(client *APIClient) checkResult {
	start := time.Now()
	if err := client.Ready(); err != nil {
		return checkResult{
			name:   "Database",
			ok:     false,
			detail: fmt.Sprintf("not ready: %v", err),
		}
	}
	return checkResult{
		name:   "Database",
		ok:     true,
		detail: fmt.Sprintf("ready (%dms)", time.Since(start).Milliseconds()),
	}
}

func checkDatasets(client *APIClient) checkResult {
	raw, err := client.Dashboard()
	if err != nil {
		return checkResult{
			name:   "Datasets",
			ok:     false,
			detail: fmt.Sprintf("dashboard error: %v", err),
		}
	}

	var dashboard map[string]json.RawMessage
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		return checkResult{
			name:   "Datasets",
			ok:     false,
			detail: fmt.Sprintf("unexpected dashboard body: %v", err),
		}
	}

	var missing, empty []string
	for _, ds := range analytics.Datasets() {
		v, ok := dashboard[ds.Key]
		switch {
		case !ok:
			missing = append(missing, ds.Key)
		case string(v) == "[]":
			empty = append(empty, ds.Key)
		}
	}
	if len(missing) > 0 {
		return checkResult{
			name:   "Datasets",
			ok:     false,
			detail: fmt.Sprintf("missing %v", missing),
		}
	}

	detail := fmt.Sprintf("%d datasets, %s", len(dashboard), humanize.Bytes(uint64(len(raw))))
	if len(empty) > 0 {
		detail += fmt.Sprintf(", empty: %v (run 'server -seed'?)", empty)
	}
	return checkResult{
		name:   "Datasets",
		ok:     true,
		detail: detail,
	}
}
