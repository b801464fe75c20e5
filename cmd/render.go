package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/notebook-intelligence/nbi-settings/internal/ui"
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render an assistant message and run code block actions",
	Long: "Render a markdown message ('-' reads stdin) for the terminal. Code blocks that declare a\n" +
		"language get a numbered toolbar.\n\n" +
		"Use --block N --action <action> to run a toolbar action on block N:\n" +
		"  copy              copy the code to the clipboard\n" +
		"  insert-at-cursor  insert the code in the active document\n" +
		"  add-as-new-cell   add the code as a new cell (notebooks only)\n" +
		"  new-file          create a new file with the code\n" +
		"  new-notebook      create a new notebook from the code (python only)\n\n" +
		"Actions other than copy are written to stdout as JSON commands for the host application.",
	Args: cobra.ExactArgs(1),
	RunE: runRender,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "7",
	},
}

var (
	renderCmdWidth          int
	renderCmdPlain          bool
	renderCmdActiveDocument string
	renderCmdBlock          int
	renderCmdAction         string
)

func init() {
	renderCmd.Flags().IntVar(&renderCmdWidth, "width", 80, "word wrap width")
	renderCmd.Flags().BoolVar(&renderCmdPlain, "plain", false, "render without colors (default when stdout is not a terminal)")
	renderCmd.Flags().StringVar(&renderCmdActiveDocument, "active-document", "", "file name of the document the user is working in")
	renderCmd.Flags().IntVar(&renderCmdBlock, "block", 0, "number of the code block to run an action on")
	renderCmd.Flags().StringVar(&renderCmdAction, "action", "", "toolbar action to run on --block")

	rootCmd.AddCommand(renderCmd)
}

// systemClipboard writes to the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// hostCommandWriter hands commands to the host application as JSON lines.
type hostCommandWriter struct {
	w io.Writer
}

func (h hostCommandWriter) Execute(_ context.Context, command string, args map[string]any) error {
	return json.NewEncoder(h.w).Encode(map[string]any{
		"command": command,
		"args":    args,
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	plain := renderCmdPlain
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		plain = true
	}
	r, err := ui.NewMarkdownRenderer(ui.MarkdownRendererOptions{
		WordWrap:  renderCmdWidth,
		Plain:     plain,
		Commands:  hostCommandWriter{w: cmd.OutOrStdout()},
		Clipboard: systemClipboard{},
		ActiveDocument: func() ui.ActiveDocumentInfo {
			return ui.ActiveDocumentInfo{Filename: renderCmdActiveDocument}
		},
	})
	if err != nil {
		return err
	}
	out, err := r.Render(string(data))
	if err != nil {
		return err
	}

	if renderCmdAction == "" {
		cmd.Print(out.Text)
		return nil
	}

	if renderCmdBlock < 1 || renderCmdBlock > len(out.Blocks) {
		return fmt.Errorf("no code block %d, the message has %d", renderCmdBlock, len(out.Blocks))
	}
	action := ui.CodeAction(renderCmdAction)
	if err := r.Run(cmd.Context(), out.Blocks[renderCmdBlock-1], action); err != nil {
		return fmt.Errorf("failed to run '%s' on code block %d: %w", action, renderCmdBlock, err)
	}
	if action == ui.ActionCopy {
		cmd.PrintErrln("Copied to clipboard")
	}
	return nil
}
