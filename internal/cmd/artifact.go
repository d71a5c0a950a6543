package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/phab"
)

var addURLArtifactCmd = &cobra.Command{
	Use:     "add-url-artifact",
	Short:   "Link a URL on a Harbormaster build target",
	Example: `  premerge add-url-artifact --phid="$ph_target_phid" --url="$BUILDKITE_BUILD_URL" --name="Buildkite build"`,
	Args:    cobra.NoArgs,
	RunE:    runAddURLArtifact,
}

func init() {
	flags := addURLArtifactCmd.Flags()
	flags.String("phid", "", "build target PHID (default is $ph_target_phid)")
	flags.String("url", "", "URL to link")
	flags.String("name", "", "link title shown in Phabricator")
	flags.String("conduit-url", "https://reviews.llvm.org/api/", "Conduit API endpoint")
	_ = addURLArtifactCmd.MarkFlagRequired("url")
	_ = addURLArtifactCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(addURLArtifactCmd)
}

func runAddURLArtifact(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	url, _ := cmd.Flags().GetString("url")
	name, _ := cmd.Flags().GetString("name")
	return phab.MaybeAddURLArtifact(cmd.Context(), s.conduit(), s.logger, s.cfg.Target.PHID, url, name)
}
