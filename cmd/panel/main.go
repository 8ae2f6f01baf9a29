// Package main runs the competition admin panel: an interactive shell that
// logs an administrator in against the competition API, polls status, keeps
// a live countdown and drives the start/reset actions.
package main

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/ArenaPanel/internal/client/api"
	"github.com/atinyakov/ArenaPanel/internal/client/panel"
	"github.com/atinyakov/ArenaPanel/internal/client/session"
	"github.com/atinyakov/ArenaPanel/internal/config"
	"github.com/atinyakov/ArenaPanel/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// repl runs the interactive shell loop, accepting admin commands until EOF
// or exit.
func repl(p *panel.Panel, view *termView, scanner *bufio.Scanner) {
	ctx := context.Background()

	for {
		fmt.Print("arenapanel> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login, logout, status, start <7|14|30>, reset, exit")
		case "login":
			if p.State() != panel.StateLoggedOut {
				fmt.Println("Already logged in")
				continue
			}
			fmt.Print("Admin password: ")
			if !scanner.Scan() {
				return
			}
			key := strings.TrimSpace(scanner.Text())
			if key == "" {
				fmt.Println("Empty password")
				continue
			}
			// Errors are already reported through the view.
			_ = p.Login(ctx, key)
		case "logout":
			p.Logout()
		case "status":
			view.printStatus(p)
		case "start":
			if len(args) < 2 {
				fmt.Println("Usage: start <7|14|30>")
				continue
			}
			days, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Println("Usage: start <7|14|30>")
				continue
			}
			if err := p.Start(ctx, days); err != nil {
				fmt.Println(err)
			}
		case "reset":
			if err := p.Reset(ctx); err != nil {
				fmt.Println(err)
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	options := config.Parse()

	if options.ShowVersion {
		fmt.Printf("Arena Admin Panel\nVersion: %s\nBuild Date: %s\n",
			cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	store := session.New(cmp.Or(options.SessionFile, session.DefaultPath()))
	client := api.New(options.ServerURL, log.Log)

	scanner := bufio.NewScanner(os.Stdin)
	view := &termView{}

	p := panel.New(panel.Config{
		Client:       client,
		Store:        store,
		View:         view,
		Confirm:      &termConfirmer{scanner: scanner},
		Logger:       log.Log,
		PollInterval: time.Duration(options.PollIntervalSec) * time.Second,
	})
	defer p.Close()

	restored, err := p.Restore(context.Background())
	if err != nil {
		log.Log.Warn("could not restore session", zap.Error(err))
	}
	if restored {
		fmt.Println("Session restored, type 'status' for the current state")
	} else {
		fmt.Println("Type 'login' to authenticate, 'help' for commands")
	}

	repl(p, view, scanner)
}
