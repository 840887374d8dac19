package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/persistence"
	"github.com/docweave/docweave/runtime"
	"github.com/docweave/docweave/state"
	"github.com/docweave/docweave/step"
)

// NewAppendCommand returns the `docweavectl append` command.
func NewAppendCommand() *cobra.Command {
	var pageArg string

	cmd := &cobra.Command{
		Use:   "append <dir> <text>",
		Short: "Recover a document and append a paragraph to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, text := args[0], args[1]
			out := cmd.OutOrStdout()
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(cmd, verbose)

			s, err := demoSchema()
			if err != nil {
				return fmt.Errorf("compiling schema: %w", err)
			}

			recovered, lastLSN, err := persistence.Recover(dir, nil, s, state.NewResourceManager(), persistence.WithRecoverLogger(log))
			if err != nil {
				return fmt.Errorf("recovering document: %w", err)
			}

			pageId := id.NodeId(pageArg)
			if pageArg == "" {
				var ok bool
				pageId, ok = firstPage(recovered.Doc())
				if !ok {
					return fmt.Errorf("document has no page to append to; pass --page")
				}
			}

			w, err := persistence.Open(dir, s, persistence.DefaultOptions(), lastLSN, persistence.WithLogger(log))
			if err != nil {
				return fmt.Errorf("opening document directory: %w", err)
			}
			defer w.Close()

			rt, err := runtime.Resume(runtime.DefaultOptions(), nil, s, recovered.Doc(), recovered.Version(), nil, nil, runtime.WithLogger(log))
			if err != nil {
				return fmt.Errorf("resuming runtime: %w", err)
			}
			w.Subscribe(rt.Bus())

			paraId := id.Generate()
			if _, err := rt.Command(func(tr *state.Transaction) error {
				return tr.Step(&step.AddNodeStep{
					ParentId: pageId,
					Nodes:    []node.Node{node.New(paraId, "para", attrs.New(map[string]interface{}{"text": text}), nil, nil)},
				})
			}); err != nil {
				return fmt.Errorf("appending paragraph: %w", err)
			}

			if err := w.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("flushing log: %w", err)
			}

			fmt.Fprintf(out, "appended paragraph %s to page %s\n", paraId, pageId)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageArg, "page", "", "page id to append to (defaults to the document's first page)")
	return cmd
}
