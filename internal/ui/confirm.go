package ui

import (
	"errors"
	"os"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/moby/term"
)

// ErrNotInteractive is returned by prompts when stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Confirm asks a yes/no question. The question and answer go to the full log.
func (l *Logger) Confirm(text string) (bool, error) {
	if !term.IsTerminal(os.Stdin.Fd()) {
		return false, ErrNotInteractive
	}

	l.mu.Lock()
	l.writeFullLogLocked("PROMPT: " + text + "\n")
	l.mu.Unlock()

	var answer bool
	prompt := &survey.Confirm{Message: text}
	if err := survey.AskOne(prompt, &answer, survey.WithStdio(os.Stdin, os.Stdout, os.Stderr)); err != nil {
		return false, err
	}

	l.mu.Lock()
	if answer {
		l.writeFullLogLocked("ANSWER: yes\n")
	} else {
		l.writeFullLogLocked("ANSWER: no\n")
	}
	l.mu.Unlock()
	return answer, nil
}
