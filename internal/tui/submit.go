package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/config"
)

// SubmitRequest holds the values collected by the submit form.
// BlockSize 0 means the provider's tasks per block.
type SubmitRequest struct {
	Command   string
	BlockSize int
	JobName   string
}

// formStep identifies the current step.
type formStep int

const (
	stepCommand formStep = iota
	stepBlockSize
	stepJobName
	stepConfirm
)

// submitForm drives the multi-step block submission form.
type submitForm struct {
	step formStep

	commandInput   textinput.Model
	blockSizeInput textinput.Model
	jobNameInput   textinput.Model

	// Collected values
	command   string
	blockSize int
	jobName   string

	// invalid describes why the current input was rejected
	invalid string
}

var (
	formTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	formStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	formActiveStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	formLabelStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	formValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	formDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func newSubmitForm() submitForm {
	ci := textinput.New()
	ci.Placeholder = "python worker.py --pool tasks"
	ci.Focus()
	ci.CharLimit = 1024
	ci.Width = 60

	bi := textinput.New()
	bi.Placeholder = "default"
	bi.CharLimit = 6
	bi.Width = 10

	ni := textinput.New()
	ni.Placeholder = "optional"
	ni.CharLimit = 63
	ni.Width = 40

	return submitForm{
		step:           stepCommand,
		commandInput:   ci,
		blockSizeInput: bi,
		jobNameInput:   ni,
	}
}

func (f *submitForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update processes a message and returns (done, request, cmd).
// done=true with a nil request means the form was cancelled.
func (f *submitForm) Update(msg tea.Msg) (bool, *SubmitRequest, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			return true, nil, nil
		case tea.KeyEsc:
			return f.handleBack()
		}
	}

	switch f.step {
	case stepCommand:
		return f.updateCommand(msg)
	case stepBlockSize:
		return f.updateBlockSize(msg)
	case stepJobName:
		return f.updateJobName(msg)
	case stepConfirm:
		return f.updateConfirm(msg)
	}

	return false, nil, nil
}

func (f *submitForm) handleBack() (bool, *SubmitRequest, tea.Cmd) {
	f.invalid = ""
	switch f.step {
	case stepCommand:
		// Esc at first step cancels the form
		return true, nil, nil
	case stepBlockSize:
		f.step = stepCommand
		f.blockSizeInput.Blur()
		f.commandInput.Focus()
		return false, nil, textinput.Blink
	case stepJobName:
		f.step = stepBlockSize
		f.jobNameInput.Blur()
		f.blockSizeInput.Focus()
		return false, nil, textinput.Blink
	case stepConfirm:
		f.step = stepJobName
		f.jobNameInput.Focus()
		return false, nil, textinput.Blink
	}
	return false, nil, nil
}

func isEnter(msg tea.Msg) bool {
	keyMsg, ok := msg.(tea.KeyMsg)
	return ok && keyMsg.Type == tea.KeyEnter
}

func (f *submitForm) updateCommand(msg tea.Msg) (bool, *SubmitRequest, tea.Cmd) {
	if isEnter(msg) {
		command := strings.TrimSpace(f.commandInput.Value())
		if command == "" {
			f.invalid = "command is required"
			return false, nil, nil
		}
		f.invalid = ""
		f.command = command
		f.step = stepBlockSize
		f.commandInput.Blur()
		f.blockSizeInput.Focus()
		return false, nil, textinput.Blink
	}

	var cmd tea.Cmd
	f.commandInput, cmd = f.commandInput.Update(msg)
	return false, nil, cmd
}

func (f *submitForm) updateBlockSize(msg tea.Msg) (bool, *SubmitRequest, tea.Cmd) {
	if isEnter(msg) {
		n, err := parseBlockSize(f.blockSizeInput.Value())
		if err != nil {
			f.invalid = err.Error()
			return false, nil, nil
		}
		f.invalid = ""
		f.blockSize = n
		f.step = stepJobName
		f.blockSizeInput.Blur()
		f.jobNameInput.Focus()
		return false, nil, textinput.Blink
	}

	var cmd tea.Cmd
	f.blockSizeInput, cmd = f.blockSizeInput.Update(msg)
	return false, nil, cmd
}

// parseBlockSize accepts an empty value (provider default) or a positive integer.
func parseBlockSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("block size must be a positive integer")
	}
	return n, nil
}

func (f *submitForm) updateJobName(msg tea.Msg) (bool, *SubmitRequest, tea.Cmd) {
	if isEnter(msg) {
		name := strings.TrimSpace(f.jobNameInput.Value())
		if name != "" {
			if err := config.ValidateLabel(name); err != nil {
				f.invalid = err.Error()
				return false, nil, nil
			}
		}
		f.invalid = ""
		f.jobName = name
		f.step = stepConfirm
		f.jobNameInput.Blur()
		return false, nil, nil
	}

	var cmd tea.Cmd
	f.jobNameInput, cmd = f.jobNameInput.Update(msg)
	return false, nil, cmd
}

func (f *submitForm) updateConfirm(msg tea.Msg) (bool, *SubmitRequest, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "y":
			return true, &SubmitRequest{
				Command:   f.command,
				BlockSize: f.blockSize,
				JobName:   f.jobName,
			}, nil
		case "n":
			// Start over
			*f = newSubmitForm()
			return false, nil, textinput.Blink
		}
	}
	return false, nil, nil
}

func (f *submitForm) View() string {
	var b strings.Builder

	b.WriteString(formTitleStyle.Render("Submit Block"))
	b.WriteString("\n")
	b.WriteString(f.progressBar())
	b.WriteString("\n\n")

	switch f.step {
	case stepCommand:
		b.WriteString(formLabelStyle.Render("Command:"))
		b.WriteString("\n")
		b.WriteString(f.commandInput.View())
	case stepBlockSize:
		b.WriteString(formLabelStyle.Render("Tasks in block:"))
		b.WriteString("\n")
		b.WriteString(f.blockSizeInput.View())
		b.WriteString("\n\n")
		b.WriteString(formDimStyle.Render("Leave empty for the provider's tasks per block."))
	case stepJobName:
		b.WriteString(formLabelStyle.Render("Job name:"))
		b.WriteString("\n")
		b.WriteString(f.jobNameInput.View())
		b.WriteString("\n\n")
		b.WriteString(formDimStyle.Render("Leave empty to use the provider label."))
	case stepConfirm:
		b.WriteString(formLabelStyle.Render("Confirm:"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Command: %s\n", formValueStyle.Render(f.command)))
		size := "default"
		if f.blockSize > 0 {
			size = strconv.Itoa(f.blockSize)
		}
		b.WriteString(fmt.Sprintf("  Tasks:   %s\n", formValueStyle.Render(size)))
		if f.jobName != "" {
			b.WriteString(fmt.Sprintf("  Name:    %s\n", formValueStyle.Render(f.jobName)))
		}
		b.WriteString("\n")
		b.WriteString(formDimStyle.Render("[enter/y] Submit  [n] Start over  [esc] Back"))
	}

	if f.invalid != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(f.invalid))
	}

	return b.String()
}

func (f *submitForm) progressBar() string {
	steps := []string{"Command", "Tasks", "Name", "Confirm"}

	var parts []string
	for i, name := range steps {
		label := fmt.Sprintf("%d. %s", i+1, name)
		if formStep(i) == f.step {
			parts = append(parts, formActiveStepStyle.Render(label))
		} else {
			parts = append(parts, formStepStyle.Render(label))
		}
	}

	return strings.Join(parts, formDimStyle.Render(" > "))
}
