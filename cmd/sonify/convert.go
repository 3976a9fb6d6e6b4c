// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sonifyreads/internal/history"
	"github.com/pdiddy/sonifyreads/internal/session"
	"github.com/pdiddy/sonifyreads/internal/upload"
	"github.com/pdiddy/sonifyreads/pkg/types"
)

// barWidth is the number of cells in the progress bar.
const barWidth = 30

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Upload a PDF and have the audio version emailed to you",
	Long: `Convert uploads one PDF (up to 50MB) to the conversion service together
with the address the finished MP3 should be sent to. Without --email you are
prompted for the address.

Addresses must belong to a common email provider (Gmail, Outlook, Yahoo, ...)
or to a work or educational domain. The upload is not retried; run the
command again after a failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("email", "e", "", "address to deliver the audio file to")
	convertCmd.Flags().Duration("timeout", 0, "upload ceiling (default 5m)")
	convertCmd.Flags().Bool("record", false, "record this attempt in the local history")

	viper.BindPFlag("timeout", convertCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("history.enabled", convertCmd.Flags().Lookup("record"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := loadClientConfig()
	w := cmd.OutOrStdout()

	client, err := upload.NewClient(nil, cfg.Upload)
	if err != nil {
		return err
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	state := session.Apply(session.State{MaxFileSize: cfg.Upload.MaxFileSize},
		session.FileSelected{File: types.SelectedFile{Path: path, Name: filepath.Base(path), Size: info.Size()}},
		session.ConvertRequested{},
	)
	if state.Phase != session.PhaseAwaitingEmail {
		return errors.New(state.Error)
	}

	email, _ := cmd.Flags().GetString("email")
	state, err = admitEmail(state, email, cmd.InOrStdin(), w)
	if err != nil {
		return err
	}

	req := types.UploadRequest{
		FileName: state.File.Name,
		FileSize: state.File.Size,
		File:     f,
		Email:    strings.TrimSpace(state.Email),
	}

	fmt.Fprintf(w, "uploading: %s (%.2f MB) for %s\n", req.FileName, float64(req.FileSize)/(1024*1024), req.Email)

	started := time.Now()
	task := client.Submit(cmd.Context(), req)
	for p := range task.Updates() {
		state = session.Reduce(state, session.Progressed{Percent: p})
		renderProgress(w, state)
	}
	out := task.Wait()
	state = session.Reduce(state, session.FromOutcome(out))
	renderProgress(w, state)
	fmt.Fprintln(w)

	if cfg.History.Enabled {
		recordAttempt(cmd.Context(), cfg.History, history.FromOutcome(req, out, started, time.Now()))
	}

	if state.Phase == session.PhaseFailed {
		return errors.New(state.Error)
	}

	msg := state.Receipt.Message
	if msg == "" {
		msg = "Upload complete. Processing started."
	}
	fmt.Fprintf(w, "%s\nThe audio file will be sent to %s when it is ready.\n", msg, req.Email)
	return nil
}

// admitEmail moves the session from the email prompt to sending. A flag
// value gets one chance; prompted input is asked for again until it is
// admitted or input ends.
func admitEmail(state session.State, email string, in io.Reader, w io.Writer) (session.State, error) {
	fromFlag := email != ""
	scanner := bufio.NewScanner(in)

	for {
		if !fromFlag {
			fmt.Fprint(w, "Email address: ")
			if !scanner.Scan() {
				fmt.Fprintln(w)
				if err := scanner.Err(); err != nil {
					return state, fmt.Errorf("reading email: %w", err)
				}
				state = session.Apply(state, session.EmailEntered{Email: ""}, session.EmailSubmitted{})
				return state, errors.New(state.EmailError)
			}
			email = scanner.Text()
		}

		state = session.Apply(state, session.EmailEntered{Email: email}, session.EmailSubmitted{})
		if state.Phase == session.PhaseSending {
			return state, nil
		}
		if fromFlag {
			return state, errors.New(state.EmailError)
		}
		fmt.Fprintln(w, state.EmailError)
	}
}

// renderProgress redraws the progress line in place.
func renderProgress(w io.Writer, s session.State) {
	filled := s.Progress * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)

	var label string
	switch s.Phase {
	case session.PhaseSending:
		label = "sending"
	case session.PhaseAwaitingAck:
		label = "waiting for server"
	case session.PhaseSucceeded:
		label = "done"
	case session.PhaseFailed:
		label = "failed"
	default:
		label = s.Phase.String()
	}
	fmt.Fprintf(w, "\r[%s] %3d%% %-20s", bar, s.Progress, label)
}

func recordAttempt(ctx context.Context, cfg types.HistoryConfig, sub types.Submission) {
	store, err := history.Open(cfg.Dir)
	if err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	// The attempt has ended; record it even if ctx was interrupted.
	if err := store.Record(context.WithoutCancel(ctx), sub); err != nil {
		slog.Warn("recording attempt", "id", sub.ID, "error", err)
	}
}
