package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/sirupsen/logrus"
)

func main() {
	r := &runner{}
	if err := r.setup(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err.Error())
	}
	defer func() {
		if err := r.close(); err != nil {
			log.Warnf("failed to shut down cleanly %v", err)
		}
	}()

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err.Error())
	}
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:            filepath.Join(home, ".lazyrows.history"),
		DisableAutoSaveHistory: true,
		VimMode:                r.args.VI,
	})
	if err != nil {
		log.Fatal(err.Error())
	}
	defer rl.Close()
	rl.SetPrompt("lazyrows> ")
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			log.Fatal(err.Error())
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		_ = rl.SaveHistory(line)
		if strings.EqualFold(strings.TrimSuffix(line, ";"), "quit") {
			return
		}
		if err := r.executor.Execute(line); err != nil {
			_, _ = io.WriteString(os.Stderr, err.Error()+"\n")
		}
	}
}
