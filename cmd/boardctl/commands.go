package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"media-boards/internal/workspace"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "boardctl",
		Short: "Manage a media boards directory",
		Long: `boardctl works on a media boards directory: images and videos at its top
level form the pool and every subdirectory is a board.

Without --root the directory stored by the last session is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.stdout == nil {
				a.stdout = cmd.OutOrStdout()
			}
			if a.stderr == nil {
				a.stderr = cmd.ErrOrStderr()
			}
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.root, "root", os.Getenv("ROOT_DIR"), "workspace directory")
	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath(), "path of the store remembering the last root")
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "grant access to a resumed root when stdin is not a terminal")
	root.PersistentFlags().BoolVar(&a.copyMoves, "copy-moves", false, "move by copy and delete instead of rename")

	root.AddCommand(
		newScanCmd(a),
		newImportCmd(a),
		newRmCmd(a),
		newMvCmd(a),
		newMkdirCmd(a),
		newResumeCmd(a),
	)
	return root
}

// run connects and then calls fn, closing the app afterwards even when
// PersistentPostRun is skipped because of an error.
func run(a *app, cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	if err := a.connect(ctx); err != nil {
		a.close()
		return describe(err)
	}
	if err := fn(ctx); err != nil {
		a.close()
		return describe(err)
	}
	return nil
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the boards and the assets in the pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(a, cmd, func(context.Context) error {
				printSnapshot(a, a.ws.Snapshot())
				return nil
			})
		},
	}
}

func printSnapshot(a *app, snap workspace.Snapshot) {
	fmt.Fprintf(a.stdout, "Workspace: %s (%s)\n\n", snap.Source, snap.RootPath)

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BOARD\tITEMS")
	for _, f := range snap.Folders {
		fmt.Fprintf(tw, "%s\t%d\n", f.Name, f.Count)
	}
	_ = tw.Flush()

	fmt.Fprintln(a.stdout)
	tw = tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tTYPE")
	for _, asset := range append(snap.Assets, snap.Queued...) {
		fmt.Fprintf(tw, "%s\t%s\n", asset.Name, asset.Kind)
	}
	_ = tw.Flush()

	fmt.Fprintf(a.stdout, "\nBoards: %d, assets: %d\n", len(snap.Folders), snap.Total)
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Copy images and videos into the workspace",
		Long: `Copy files into the workspace root. Each file is saved as
import_<timestamp>.<ext>; files that are neither images nor videos are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, func(ctx context.Context) error {
				for _, path := range args {
					name, err := importFile(ctx, a.ws, path)
					switch {
					case err == nil:
						fmt.Fprintf(a.stdout, "%s -> %s\n", path, name)
					case isUnsupported(err):
						fmt.Fprintf(a.stdout, "%s skipped: not an image or video\n", path)
					default:
						return fmt.Errorf("import %s: %w", path, err)
					}
				}
				return nil
			})
		},
	}
}

func importFile(ctx context.Context, ws *workspace.Workspace, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return ws.Import(ctx, workspace.ImportFile{Name: filepath.Base(path), Body: f})
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete an asset from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, func(ctx context.Context) error {
				if err := a.ws.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv NAME BOARD",
		Short: "Move an asset onto a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, func(ctx context.Context) error {
				req := workspace.MoveRequest{AssetID: args[0], FolderID: args[1]}
				if err := a.ws.Move(ctx, req); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Moved %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir NAME",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a, cmd, func(ctx context.Context) error {
				if err := a.ws.CreateFolder(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Created board %s\n", args[0])
				return nil
			})
		},
	}
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Reopen the stored workspace and list it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.root = ""
			return run(a, cmd, func(context.Context) error {
				printSnapshot(a, a.ws.Snapshot())
				return nil
			})
		},
	}
}
