package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/miniquinox/billsync/internal/submission"
	"github.com/miniquinox/billsync/pkg/utils"
)

const defaultAPIURL = "http://localhost:8080"

func runJoin(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "your name")
	email := fs.String("email", "", "your email address")
	company := fs.String("company", "", "your company")
	api := fs.String("api", utils.GetEnvTrimmedOrDefault("WAITLIST_API_URL", defaultAPIURL), "waitlist API base URL")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	form := submission.NewForm(
		submission.NewHTTPInserter(*api, nil),
		submission.NewConsoleNotifier(stdout),
	)
	form.SetName(*name)
	form.SetEmail(*email)
	form.SetCompany(*company)

	if problems := form.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(stderr, "%s: %s\n", p.Field, p.Message)
		}
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := form.Submit(ctx); err != nil {
		return 1
	}
	return 0
}
