package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"multimodal-rag-platform/models"
)

// QueryPort is the TUI-facing subset of the API client.
type QueryPort interface {
	Query(query string, topK int) (*models.QueryResponse, error)
	Status() (*models.SystemStatus, error)
}

// Model is the Bubble Tea model for the interactive query client.
type Model struct {
	client   QueryPort
	input    textinput.Model
	viewport viewport.Model
	response *models.QueryResponse
	status   string
	ready    bool
}

// New creates a new TUI model instance.
func New(client QueryPort) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask a question about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)

	status := "Connected. Type a question to search."
	if st, err := client.Status(); err != nil {
		status = "Warning: server unreachable: " + err.Error()
	} else {
		status = fmt.Sprintf("%d documents indexed (%d text, %d image). Type a question.",
			st.TotalDocuments, st.TextDocuments, st.ImageDocuments)
	}

	return Model{client: client, input: ti, viewport: vp, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-rh)
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				resp, err := m.client.Query(q, 0)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.response = nil
				} else {
					m.status = fmt.Sprintf("Answer for %q", q)
					m.response = resp
				}
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout with the latest answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Multimodal RAG")
	answer := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderResponse() string {
	if m.response == nil {
		return "No answer yet."
	}

	var sb strings.Builder
	sb.WriteString(m.response.Answer)
	sb.WriteString("\n")

	if len(m.response.Sources) > 0 {
		sb.WriteString("\n" + sourceHeaderStyle.Render("Sources") + "\n")
		for i, src := range m.response.Sources {
			line := fmt.Sprintf("%d. %s (%s, similarity %.3f)", i+1, src.Source, src.ContentType, src.Similarity)
			if src.ContentType == models.ContentTypeImage {
				line += fmt.Sprintf(" page %d", src.Page)
			}
			sb.WriteString(line + "\n")
		}
	}

	return sb.String()
}

var (
	answerBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourceHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
