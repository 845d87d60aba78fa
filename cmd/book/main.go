// Command book runs the consultation booking wizard in a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfman30/consult-booking/cmd/mainconfig"
	"github.com/wolfman30/consult-booking/internal/booking"
	appconfig "github.com/wolfman30/consult-booking/internal/config"
	"github.com/wolfman30/consult-booking/internal/organizer"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

func main() {
	if err := mainconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cfg := appconfig.Load()

	fs := flag.NewFlagSet("book", flag.ExitOnError)
	reschedule := fs.String("reschedule", "", "JSON file holding an existing meeting to reschedule")
	dryRun := fs.Bool("dry-run", cfg.MeetingAPIDryRun, "log the meeting instead of sending it")
	baseURL := fs.String("api", cfg.MeetingAPIBaseURL, "meeting API base URL")
	userFile := fs.String("user", cfg.SessionUserFile, "session user JSON file")
	_ = fs.Parse(os.Args[1:])

	cfg.MeetingAPIDryRun = *dryRun
	cfg.MeetingAPIBaseURL = *baseURL
	cfg.SessionUserFile = *userFile

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)
	if err := run(ctx, cfg, *reschedule, os.Stdin, os.Stdout, logger); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nbooking cancelled")
			os.Exit(130)
		}
		logger.Error("booking failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, reschedulePath string, in io.Reader, out io.Writer, logger *logging.Logger, extra ...booking.Option) error {
	entry, err := loadEntry(reschedulePath)
	if err != nil {
		return err
	}
	user, err := organizer.LoadFile(cfg.SessionUserFile)
	if err != nil {
		logger.Warn("ignoring unreadable session user file", "error", err)
	}

	client := mainconfig.NewMeetingClient(cfg, logger, nil)
	opts := append(mainconfig.WizardOptions(cfg, logger), extra...)
	wiz := booking.NewWizard(entry, user, client, opts...)

	meeting, err := newTerminal(wiz, in, out).run(ctx)
	if err != nil {
		return err
	}
	logger.Info("meeting booked", "meeting_id", meeting.ID, "mode", string(wiz.Mode()))
	return nil
}

// loadEntry reads the meeting being rescheduled. An empty path starts a new
// booking.
func loadEntry(path string) (booking.Entry, error) {
	if path == "" {
		return booking.Entry{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return booking.Entry{}, fmt.Errorf("read reschedule file: %w", err)
	}
	var meeting booking.MeetingDraft
	if err := json.Unmarshal(data, &meeting); err != nil {
		return booking.Entry{}, fmt.Errorf("decode reschedule file: %w", err)
	}
	return booking.Entry{IsRescheduling: true, MeetingData: &meeting}, nil
}
