package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Jack-Tung/private-poker/pkg/client"
	"github.com/Mr-Jack-Tung/private-poker/pkg/server"
	"github.com/Mr-Jack-Tung/private-poker/pkg/ui"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s USERNAME [ADDR]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	username := flag.Arg(0)
	addr := server.DefaultBind
	if flag.NArg() > 1 {
		addr = flag.Arg(1)
	}

	pc, view, err := client.Connect(addr, username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer pc.Close()

	model := ui.New(pc, view)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := model.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
		os.Exit(1)
	}
}
