package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/service"
)

var (
	assistantColor = color.New(color.FgCyan)
	userColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed, color.Bold)
	successColor   = color.New(color.FgGreen, color.Bold)
	noticeColor    = color.New(color.FgYellow)
)

func initUI(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func printMessage(w io.Writer, m model.Message) {
	switch m.Role {
	case model.RoleUser:
		userColor.Fprint(w, "you> ")
	default:
		assistantColor.Fprint(w, "lexsy> ")
	}
	fmt.Fprintln(w, m.Content)
}

func printBanner(w io.Writer, b *service.Banner) {
	if b == nil {
		return
	}
	errorColor.Fprintf(w, "%s: ", b.Title)
	fmt.Fprintln(w, b.Detail)
}

func printNotice(w io.Writer, format string, args ...any) {
	noticeColor.Fprintf(w, format+"\n", args...)
}

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, format+"\n", args...)
}
