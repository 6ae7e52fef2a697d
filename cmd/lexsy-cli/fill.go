package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/service"
)

var (
	fillVariant    string
	fillOut        string
	fillPreviewOut string
)

var fillCmd = &cobra.Command{
	Use:   "fill <file.docx>",
	Short: "Upload a template and fill its placeholders interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillVariant, "variant", "", "processing variant: v1 (direct function calling) or v2 (agent with tools)")
	fillCmd.Flags().StringVarP(&fillOut, "out", "o", "", "where to write the completed document (default: generated name)")
	fillCmd.Flags().StringVar(&fillPreviewOut, "preview-out", "", "also write an HTML preview to this path")
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	variantFlag := fillVariant
	if variantFlag == "" {
		variantFlag = cfg.API.DefaultVariant
	}
	variant, err := model.ParseVariant(variantFlag)
	if err != nil {
		return err
	}

	path := args[0]
	if err := service.ValidateFilename(filepath.Base(path)); err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer file.Close()

	client := service.NewAPIClient(&cfg.API)
	uploaded, err := service.NewUploadFlow(client).Submit(ctx, filepath.Base(path), file, variant)
	if err != nil {
		printBanner(cmd.ErrOrStderr(), bannerOf(err))
		return err
	}
	printNotice(out, "Uploaded %s as %s (%s)", filepath.Base(path), uploaded.DocumentID, variant.Label())

	ctrl := service.NewSessionController(service.SessionDeps{
		API:       client,
		Artifacts: service.NewMemoryArtifactCache(time.Duration(cfg.Session.TTLHours) * time.Hour),
		Converter: service.NewDocxConverter(),
	}, "cli", uploaded.DocumentID, variant)

	if err := ctrl.Start(ctx); err != nil {
		printBanner(cmd.ErrOrStderr(), ctrl.View().Banner)
		return err
	}

	if err := converse(ctx, ctrl, cmd.InOrStdin(), out, cmd.ErrOrStderr()); err != nil {
		return err
	}

	return finish(ctx, ctrl, out, cmd.ErrOrStderr())
}

// converse prints the transcript and feeds stdin lines to the controller
// until every placeholder is filled.
func converse(ctx context.Context, ctrl *service.SessionController, in io.Reader, out, errOut io.Writer) error {
	printed := 0
	show := func(skipUser bool) {
		view := ctrl.View()
		if printed > len(view.Transcript) {
			printed = len(view.Transcript)
		}
		for _, m := range view.Transcript[printed:] {
			if skipUser && m.Role == model.RoleUser {
				continue
			}
			printMessage(out, m)
		}
		printed = len(view.Transcript)
	}
	show(false)

	scanner := bufio.NewScanner(in)
	for ctrl.View().State != model.StateCompleted {
		userColor.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("input closed before all placeholders were filled")
		}

		err := ctrl.Submit(ctx, scanner.Text())
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			continue
		case err != nil:
			printBanner(errOut, ctrl.View().Banner)
			// The local user message stays in the transcript.
			printed = len(ctrl.View().Transcript)
			continue
		}
		show(true)
	}

	printSuccess(out, "All placeholders filled.")
	return nil
}

// finish waits for the preview and downloads the document concurrently.
// A preview failure is reported on errOut and never blocks the document.
func finish(ctx context.Context, ctrl *service.SessionController, out, errOut io.Writer) error {
	var g errgroup.Group

	previewWritten := false
	if fillPreviewOut != "" {
		g.Go(func() error {
			ctrl.Preview().Trigger(ctx)
			view, err := ctrl.Preview().Wait(ctx)
			switch {
			case err != nil:
				printBanner(errOut, &service.Banner{Title: "Preview unavailable", Detail: err.Error()})
			case view.Status != service.PreviewReady:
				printBanner(errOut, &service.Banner{Title: "Preview unavailable", Detail: view.Error})
			default:
				if err := os.WriteFile(fillPreviewOut, []byte(view.HTML), 0o644); err != nil {
					printBanner(errOut, &service.Banner{Title: "Preview unavailable", Detail: err.Error()})
					return nil
				}
				previewWritten = true
			}
			return nil
		})
	}

	var download *service.Download
	g.Go(func() error {
		d, err := ctrl.Download(ctx)
		if err != nil {
			return fmt.Errorf("download: %s", service.ClassifyError(err).Detail)
		}
		download = d
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	target := fillOut
	if target == "" {
		target = download.Filename
	}
	if err := writeOutput(target, download.Data, out); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if target != "-" {
		printSuccess(out, "Saved %s (%d bytes)", target, len(download.Data))
	}
	if previewWritten {
		printNotice(out, "Preview written to %s", fillPreviewOut)
	}
	return nil
}

func bannerOf(err error) *service.Banner {
	b := service.ClassifyError(err)
	return &b
}
