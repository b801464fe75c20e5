package ui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Host commands dispatched by the code block toolbar.
const (
	CommandInsertAtCursor          = "notebook-intelligence:insert-at-cursor"
	CommandAddCodeAsNewCell        = "notebook-intelligence:add-code-as-new-cell"
	CommandCreateNewFile           = "notebook-intelligence:create-new-file"
	CommandCreateNewNotebookFromPy = "notebook-intelligence:create-new-notebook-from-py"
)

// CodeAction is a button of the code block toolbar.
type CodeAction string

const (
	ActionCopy              CodeAction = "copy"
	ActionInsertAtCursor    CodeAction = "insert-at-cursor"
	ActionAddAsNewCell      CodeAction = "add-as-new-cell"
	ActionCreateNewFile     CodeAction = "new-file"
	ActionCreateNewNotebook CodeAction = "new-notebook"
)

// Key returns the single-key shortcut of the action.
func (a CodeAction) Key() string {
	switch a {
	case ActionCopy:
		return "c"
	case ActionInsertAtCursor:
		return "i"
	case ActionAddAsNewCell:
		return "a"
	case ActionCreateNewFile:
		return "f"
	case ActionCreateNewNotebook:
		return "n"
	}
	return ""
}

// Title returns the tooltip text of the action.
func (a CodeAction) Title() string {
	switch a {
	case ActionCopy:
		return "Copy to clipboard"
	case ActionInsertAtCursor:
		return "Insert at cursor"
	case ActionAddAsNewCell:
		return "Add as new cell"
	case ActionCreateNewFile:
		return "New file"
	case ActionCreateNewNotebook:
		return "New notebook"
	}
	return string(a)
}

// ErrActionUnavailable is returned when an action is not offered for a code block.
var ErrActionUnavailable = errors.New("action not available for this code block")

// CommandExecutor runs commands of the host application.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args map[string]any) error
}

// Clipboard receives copied code.
type Clipboard interface {
	WriteText(text string) error
}

// ActiveDocumentInfo describes the document the user is working in.
type ActiveDocumentInfo struct {
	Filename string
}

// IsNotebook reports whether the active document is a notebook.
func (d ActiveDocumentInfo) IsNotebook() bool {
	return strings.HasSuffix(d.Filename, ".ipynb")
}

// CodeBlock is a fenced code block of a markdown message.
type CodeBlock struct {
	// Language is the first word of the info string, "text" when there is none.
	Language string
	// Code is the block content without its final newline.
	Code string
	// HasToolbar is set for blocks that declare a language.
	HasToolbar bool

	// fenceStart is the offset of the line holding the opening fence.
	fenceStart int
	// fenceIndent is what precedes the fence on that line, e.g. list indentation.
	fenceIndent string
}

// Actions returns the toolbar actions offered for the block in the given document.
func (b CodeBlock) Actions(doc ActiveDocumentInfo) []CodeAction {
	if !b.HasToolbar {
		return nil
	}
	actions := []CodeAction{ActionCopy, ActionInsertAtCursor}
	if doc.IsNotebook() {
		actions = append(actions, ActionAddAsNewCell)
	}
	actions = append(actions, ActionCreateNewFile)
	if b.Language == "python" {
		actions = append(actions, ActionCreateNewNotebook)
	}
	return actions
}

var languagePattern = regexp.MustCompile(`language-(\w+)`)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// ExtractCodeBlocks returns the fenced code blocks of a markdown document in order.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	src := []byte(markdown)
	doc := markdownParser.Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		block := CodeBlock{Language: "text"}
		if fcb.Info != nil {
			if m := languagePattern.FindStringSubmatch("language-" + string(fcb.Language(src))); m != nil {
				block.Language = m[1]
				block.HasToolbar = true
			}
			infoStart := fcb.Info.Segment.Start
			block.fenceStart = strings.LastIndexByte(markdown[:infoStart], '\n') + 1
			line := markdown[block.fenceStart:infoStart]
			if i := strings.IndexAny(line, "`~"); i >= 0 {
				block.fenceIndent = line[:i]
			}
		}

		var code strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(src))
		}
		block.Code = strings.TrimSuffix(code.String(), "\n")

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// MarkdownRendererOptions configures a MarkdownRenderer.
type MarkdownRendererOptions struct {
	// WordWrap is the rendering width, 80 when zero.
	WordWrap int
	// Plain disables colors and terminal styling.
	Plain bool

	Commands       CommandExecutor
	Clipboard      Clipboard
	ActiveDocument func() ActiveDocumentInfo
}

// MarkdownRenderer renders assistant messages for the terminal and runs the
// actions of their code block toolbars.
type MarkdownRenderer struct {
	renderer       *glamour.TermRenderer
	commands       CommandExecutor
	clipboard      Clipboard
	activeDocument func() ActiveDocumentInfo
}

// RenderedMarkdown is a rendered message together with its code blocks.
// Toolbar numbers in Text index Blocks starting at 1.
type RenderedMarkdown struct {
	Text   string
	Blocks []CodeBlock
}

func NewMarkdownRenderer(opts MarkdownRendererOptions) (*MarkdownRenderer, error) {
	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = 80
	}
	glamourOpts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	if opts.Plain {
		glamourOpts = append(glamourOpts,
			glamour.WithStandardStyle("notty"),
			glamour.WithColorProfile(termenv.Ascii),
		)
	} else {
		glamourOpts = append(glamourOpts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(glamourOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	r := &MarkdownRenderer{
		renderer:       renderer,
		commands:       opts.Commands,
		clipboard:      opts.Clipboard,
		activeDocument: opts.ActiveDocument,
	}
	if r.activeDocument == nil {
		r.activeDocument = func() ActiveDocumentInfo { return ActiveDocumentInfo{} }
	}
	return r, nil
}

// Render renders the markdown with a toolbar line above every code block that
// declares a language.
func (r *MarkdownRenderer) Render(markdown string) (*RenderedMarkdown, error) {
	blocks := ExtractCodeBlocks(markdown)
	doc := r.activeDocument()

	var (
		b    strings.Builder
		last int
	)
	for i, block := range blocks {
		if !block.HasToolbar {
			continue
		}
		b.WriteString(markdown[last:block.fenceStart])
		b.WriteString(block.fenceIndent + toolbarLine(i+1, block, doc) + "\n")
		last = block.fenceStart
	}
	b.WriteString(markdown[last:])

	out, err := r.renderer.Render(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return &RenderedMarkdown{Text: out, Blocks: blocks}, nil
}

func toolbarLine(n int, block CodeBlock, doc ActiveDocumentInfo) string {
	parts := []string{fmt.Sprintf("**[%d] %s**", n, block.Language)}
	for _, a := range block.Actions(doc) {
		parts = append(parts, fmt.Sprintf("`%s` %s", a.Key(), a.Title()))
	}
	return strings.Join(parts, " | ")
}

// Run performs a toolbar action on a code block.
func (r *MarkdownRenderer) Run(ctx context.Context, block CodeBlock, action CodeAction) error {
	available := false
	for _, a := range block.Actions(r.activeDocument()) {
		if a == action {
			available = true
			break
		}
	}
	if !available {
		return fmt.Errorf("%w: %s", ErrActionUnavailable, action)
	}

	if action == ActionCopy {
		if r.clipboard == nil {
			return errors.New("no clipboard available")
		}
		return r.clipboard.WriteText(block.Code)
	}

	if r.commands == nil {
		return errors.New("no host application to run the command")
	}
	args := map[string]any{"language": block.Language, "code": block.Code}
	switch action {
	case ActionInsertAtCursor:
		return r.commands.Execute(ctx, CommandInsertAtCursor, args)
	case ActionAddAsNewCell:
		return r.commands.Execute(ctx, CommandAddCodeAsNewCell, args)
	case ActionCreateNewFile:
		return r.commands.Execute(ctx, CommandCreateNewFile, args)
	default:
		return r.commands.Execute(ctx, CommandCreateNewNotebookFromPy, args)
	}
}
