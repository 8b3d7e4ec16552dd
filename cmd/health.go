package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cass-search/cass/internal/output"
	"github.com/spf13/cobra"
)

// healthComponent is one subsystem's pass/fail verdict in a health probe.
type healthComponent struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Count  int64  `json:"count,omitempty"`
}

type healthReport struct {
	OK         bool              `json:"ok"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	Components []healthComponent `json:"components"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the durable store and indices are open and reachable",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report := healthReport{OK: true}

	st, err := openStore()
	if err != nil {
		report.OK = false
		report.Components = append(report.Components, healthComponent{Name: "store", OK: false, Detail: err.Error()})
	} else {
		counters, err := st.Counters(ctx)
		st.Close()
		if err != nil {
			report.OK = false
			report.Components = append(report.Components, healthComponent{Name: "store", OK: false, Detail: err.Error()})
		} else {
			report.Components = append(report.Components, healthComponent{Name: "store", OK: true, Count: counters.Messages})
		}
	}

	idx, err := openFTS()
	if err != nil {
		report.OK = false
		report.Components = append(report.Components, healthComponent{Name: "fts_index", OK: false, Detail: err.Error()})
	} else {
		count, err := idx.Count(ctx)
		idx.Close()
		if err != nil {
			report.OK = false
			report.Components = append(report.Components, healthComponent{Name: "fts_index", OK: false, Detail: err.Error()})
		} else {
			report.Components = append(report.Components, healthComponent{Name: "fts_index", OK: true, Count: count})
		}
	}

	vs, _, err := openVector()
	if err != nil {
		report.Components = append(report.Components, healthComponent{Name: "vector_index", OK: false, Detail: err.Error()})
	} else {
		report.Components = append(report.Components, healthComponent{Name: "vector_index", OK: true, Count: int64(vs.Count())})
		vs.Close()
	}

	report.ElapsedMS = time.Since(start).Milliseconds()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Components {
			status := "ok"
			if !c.OK {
				status = "FAIL: " + c.Detail
			}
			fmt.Printf("%-14s %s (count=%d)\n", c.Name, status, c.Count)
		}
		fmt.Printf("checked in %dms\n", report.ElapsedMS)
	}

	if !report.OK {
		return output.New(output.KindHealthFail, "one or more components failed their health check", "run `cass doctor` for details")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
