package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/persistence"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/state"
)

// NewInspectCommand returns the `docweavectl inspect` command.
func NewInspectCommand() *cobra.Command {
	var nextTypesFor string

	cmd := &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Recover a document and print its tree",
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

			recovered, lastLSN, err := persistence.Recover(dir, nil, s, state.NewResourceManager(), persistence.WithRecoverLogger(log))
			if err != nil {
				return fmt.Errorf("recovering document: %w", err)
			}

			fmt.Fprintf(out, "version %d, last lsn %d\n", recovered.Version(), lastLSN)
			root := recovered.Doc().Root()
			if root.IsZero() {
				fmt.Fprintln(out, "(empty document)")
				return nil
			}
			printTree(out, recovered.Doc(), root, 0)

			if nextTypesFor != "" {
				if err := printNextTypes(out, s, recovered.Doc(), id.NodeId(nextTypesFor)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&nextTypesFor, "next-types", "", "print node types that may legally follow this node's existing children")
	return cmd
}

// printNextTypes reports the node types valid_child_types_after (spec.md
// §4.1) would admit after nid's current children, using the schema's
// memoized lookup rather than recomputing the automaton walk by hand.
func printNextTypes(out io.Writer, s *schema.Schema, doc *pool.Pool, nid id.NodeId) error {
	n, ok := doc.Get(nid)
	if !ok {
		return fmt.Errorf("next-types: node %q not found", nid)
	}
	prefix, ok := n.ContentTypes(func(childId id.NodeId) (string, bool) {
		child, ok := doc.Get(childId)
		return child.Type, ok
	})
	if !ok {
		return fmt.Errorf("next-types: node %q has a child with no resolvable type", nid)
	}
	types, ok := s.ValidNextTypesMemo(n.Type, prefix)
	if !ok {
		return fmt.Errorf("next-types: %q's existing children don't match its content model", n.Type)
	}
	if len(types) == 0 {
		fmt.Fprintf(out, "next types after %s: (none)\n", nid)
		return nil
	}
	fmt.Fprintf(out, "next types after %s: %s\n", nid, strings.Join(types, ", "))
	return nil
}

func printTree(out io.Writer, doc *pool.Pool, nid id.NodeId, depth int) {
	n, ok := doc.Get(nid)
	if !ok {
		return
	}
	fmt.Fprintf(out, "%s%s %s%s\n", strings.Repeat("  ", depth), n.Type, nid, describeAttrs(n))
	for _, child := range n.Content {
		printTree(out, doc, child, depth+1)
	}
}

func describeAttrs(n node.Node) string {
	if n.Attrs.Len() == 0 {
		return ""
	}
	text, ok := n.Attrs.Get("text")
	if !ok {
		return ""
	}
	return fmt.Sprintf(" text=%q", text)
}
