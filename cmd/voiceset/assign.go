package main

import (
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Step 3: drop excluded artists and assign singer IDs",
	Long: `Assign first removes every row whose artist name cannot identify a
single singer: collaborations (feat., vs., &, commas), orchestras and
choirs, DJs, unknown or collective acts, and empty names. Removal is
destructive and cascades over data.csv, the ID mapping, and the audio
tree; every removal is written to the audit log before anything is
touched, and directories are deleted only after the edited artifacts
are persisted.

The surviving artists are then canonicalized (lowercase, trimmed) and
assigned idNNNNN singer IDs in first-seen manifest order. Supply
--mapping or --reference to resolve against an existing mapping;
--strict-ids makes an unmapped artist an error instead of allocating a
new ID.`,
	RunE: stepRunner(3),
}

func init() {
	rootCmd.AddCommand(assignCmd)
}
