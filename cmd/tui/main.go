package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"multimodal-rag-platform/internal/tui"
)

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "Base URL of the running RAG server")
	flag.Parse()

	client := tui.NewAPIClient(serverURL)
	model := tui.New(client)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
