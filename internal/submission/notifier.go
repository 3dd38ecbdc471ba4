package submission

import (
	"fmt"
	"io"

	"github.com/miniquinox/billsync/internal/log"
)

// LogNotifier reports outcomes as structured log lines.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent("submission")}
}

func (n *LogNotifier) Success(title, description string) {
	n.logger.Info("Waitlist submission succeeded", "title", title, "description", description)
}

func (n *LogNotifier) Failure(title, description string) {
	n.logger.Warn("Waitlist submission failed", "title", title, "description", description)
}

// ConsoleNotifier prints outcomes for a terminal user.
type ConsoleNotifier struct {
	w io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (n *ConsoleNotifier) Success(title, description string) {
	fmt.Fprintf(n.w, "%s\n%s\n", title, description)
}

func (n *ConsoleNotifier) Failure(title, description string) {
	fmt.Fprintf(n.w, "%s\n%s\n", title, description)
}
