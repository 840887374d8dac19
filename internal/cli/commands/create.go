package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/logging"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/persistence"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/state"
)

// NewCreateCommand returns the `docweavectl create` command.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <dir>",
		Short: "Initialize a new document directory with a single page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			out := cmd.OutOrStdout()
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(cmd, verbose)

			s, err := demoSchema()
			if err != nil {
				return fmt.Errorf("compiling schema: %w", err)
			}

			docId, pageId := id.Generate(), id.Generate()
			p := pool.Empty()
			d := p.Draft()
			if err := d.InitRoot(s, node.New(docId, "doc", attrs.Empty, nil, nil)); err != nil {
				return fmt.Errorf("initializing root: %w", err)
			}
			p = d.Commit()

			d2 := p.Draft()
			if err := d2.AddNode(s, docId, 0, node.New(pageId, "page", attrs.Empty, nil, nil)); err != nil {
				return fmt.Errorf("adding initial page: %w", err)
			}
			doc := d2.Commit()

			w, err := persistence.Open(dir, s, persistence.DefaultOptions(), 0, persistence.WithLogger(log))
			if err != nil {
				return fmt.Errorf("opening document directory: %w", err)
			}
			defer w.Close()

			initial := state.New(nil, s, doc, state.NewResourceManager())
			if err := w.Snapshot(initial); err != nil {
				return fmt.Errorf("writing initial snapshot: %w", err)
			}

			fmt.Fprintf(out, "created document in %s\n", dir)
			fmt.Fprintf(out, "  doc:  %s\n", docId)
			fmt.Fprintf(out, "  page: %s\n", pageId)
			return nil
		},
	}
	return cmd
}

func newLogger(cmd *cobra.Command, verbose bool) logging.Logger {
	if !verbose {
		return logging.Discard
	}
	return logging.NewWithWriters(logging.LevelDebug, cmd.ErrOrStderr(), cmd.ErrOrStderr())
}
