package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/pipeline"
	"github.com/franz/voiceset/internal/state"
	"github.com/franz/voiceset/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset artifacts and pipeline progress",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEnv(false)
	if err != nil {
		return err
	}

	fmt.Printf("Dataset: %s\n\n", e.datasetDir)

	layout, err := pipeline.ReadLayout(e.datasetDir)
	if err != nil {
		util.WarnLog("Unreadable %s: %v", pipeline.LayoutFile, err)
	} else {
		fmt.Printf("Audio tree stage: %s\n\n", layout.Stage)
	}

	artifacts := []string{
		originalInputCSV, dataCSV, singerMappingJSON,
		hashMappingCSV, subsetSplitCSV, testPairsTXT, stateDB,
	}
	fmt.Println("Artifacts:")
	for _, name := range artifacts {
		path := e.path(name)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Printf("  %-28s missing\n", name)
			continue
		}
		detail := humanize.Bytes(uint64(info.Size()))
		if name == dataCSV || name == subsetSplitCSV {
			if m, err := manifest.Load(path); err == nil {
				detail = fmt.Sprintf("%s, %d rows", detail, m.Len())
			}
		}
		fmt.Printf("  %-28s %s\n", name, detail)
	}

	if util.FileExists(e.path(stateDB)) {
		journal, err := state.Open(e.path(stateDB))
		if err != nil {
			return err
		}
		defer journal.Close()

		counts, err := journal.CountByStatus()
		if err != nil {
			return err
		}
		fmt.Println("\nIngest journal:")
		for _, status := range []string{state.StatusDone, state.StatusPending, state.StatusError} {
			if n := counts[status]; n > 0 {
				fmt.Printf("  %-10s %d tracks\n", status, n)
			}
		}
	}

	return nil
}
