package main

import (
	"github.com/spf13/cobra"
)

var hashnamesCmd = &cobra.Command{
	Use:   "hashnames",
	Short: "Step 5: rename track directories to digests of their names",
	Long: `Hashnames renames audio/<singer_id>/<track> to
audio/<singer_id>/<md5(track)>, writing the name-to-digest mapping to
trackname_hash_mapping.csv. Two distinct names hashing equal abort the
step before any rename happens. Directories already named by a digest
are left alone, so a resumed run is safe.`,
	RunE: stepRunner(5),
}

func init() {
	rootCmd.AddCommand(hashnamesCmd)
}
