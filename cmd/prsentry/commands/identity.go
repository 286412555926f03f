package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var identityRepo string

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Show the resolved acting identity",
	Long: `Resolve and print the identity this tool would act as for the given
repository, without starting a review session. Useful for debugging
credential shape (user token, app JWT, or installation token).`,
	RunE: runIdentity,
}

func init() {
	identityCmd.Flags().StringVar(
		&identityRepo, "repo", "",
		"Repository as owner/name (required)",
	)
	_ = identityCmd.MarkFlagRequired("repo")
}

func runIdentity(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, repo, err := splitRepo(identityRepo)
	if err != nil {
		return err
	}

	_, resolver, err := newPlatformClient()
	if err != nil {
		return err
	}

	id, err := resolver.Resolve(ctx, owner, repo)
	if err != nil {
		return err
	}

	fmt.Printf("kind:         %s\n", id.Kind)
	fmt.Printf("id:           %d\n", id.ID)
	fmt.Printf("login:        %s\n", id.Login)
	fmt.Printf("display name: %s\n", id.DisplayName)

	if inst := id.Installation; inst != nil {
		fmt.Printf("installation: %d on %s %q (app %s)\n",
			inst.ID, inst.OwnerKind, inst.OwnerLogin,
			inst.AppSlug)
	}

	return nil
}
