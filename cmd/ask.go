package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/notebook-intelligence/nbi-settings/internal/question"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <file>",
	Short: "Show a question dialog and print the answers",
	Long: "Show the ask-user question dialog described by a JSON file ('-' reads stdin) and print the\n" +
		"selected answers as a JSON object mapping each question to its selected labels.\n" +
		"Nothing is printed when the dialog is cancelled.",
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "6",
	},
}

var askCmdOutput string

// fileSystem is where input and output files of the local commands live.
var fileSystem = afero.NewOsFs()

func init() {
	askCmd.Flags().StringVarP(&askCmdOutput, "output", "o", "", "write the answers to this file instead of stdout")

	rootCmd.AddCommand(askCmd)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := afero.ReadFile(fileSystem, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func loadQuestions(data []byte) (types.UserQuestions, error) {
	var q types.UserQuestions
	if err := json.Unmarshal(data, &q); err != nil {
		return q, fmt.Errorf("invalid question file: %w", err)
	}
	if len(q.Questions) == 0 {
		return q, fmt.Errorf("invalid question file: no questions")
	}
	for _, qq := range q.Questions {
		if len(qq.Options) == 0 {
			return q, fmt.Errorf("invalid question file: question '%s' has no options", qq.Question)
		}
	}
	return q, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	q, err := loadQuestions(data)
	if err != nil {
		return err
	}

	var answers map[string][]string
	d := question.NewDialog(q, func(sel map[string][]string) { answers = sel }, nil)

	p := tea.NewProgram(ui.NewQuestionModel(d), tea.WithContext(cmd.Context()), tea.WithOutput(os.Stderr))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("question dialog failed: %w", err)
	}
	if answers == nil {
		return nil
	}
	return writeAnswers(cmd, answers)
}

func writeAnswers(cmd *cobra.Command, answers map[string][]string) error {
	out, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	if askCmdOutput == "" {
		cmd.Println(string(out))
		return nil
	}
	if err := afero.WriteFile(fileSystem, askCmdOutput, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", askCmdOutput, err)
	}
	return nil
}
