package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"fingergate/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// attemptKind maps a report to the color of its outcome line.
func attemptKind(r api.AttemptReport) statusKind {
	switch {
	case r.ErrorKind != "":
		return statusError
	case r.Granted, r.Result == "enrolled":
		return statusOK
	default:
		return statusWarn
	}
}

// renderAttempt renders the one-line outcome of an attempt.
func renderAttempt(r api.AttemptReport, colorize bool) string {
	var label, message string
	switch {
	case r.ErrorKind != "":
		label = "Failed"
		message = r.Error
		if message == "" {
			message = r.ErrorKind
		}
	case r.Mode == "enroll":
		label = "Enrolled"
		message = fmt.Sprintf("%s (record %d)", r.Identifier, r.RecordID)
	case r.Granted:
		label = "Granted"
		message = fmt.Sprintf("%s (score %d, %d/%d checked)", r.Identifier, r.Score, r.Checked, r.Total)
	default:
		label = "Denied"
		message = fmt.Sprintf("no match among %d enrollments", r.Total)
	}
	return renderStatusLine(label, attemptKind(r), message, colorize)
}

func renderRecords(records []api.RecordSummary) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Identifier,
			strconv.Itoa(rec.TemplateSize),
			rec.CreatedAt,
		})
	}
	return renderTable([]column{
		{title: "ID", numeric: true},
		{title: "Identifier"},
		{title: "Template", numeric: true},
		{title: "Created"},
	}, rows)
}

func renderEvents(events []api.AccessEvent) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		score := ""
		if ev.Score > 0 {
			score = strconv.Itoa(ev.Score)
		}
		outcome := ev.Outcome
		if ev.ErrorKind != "" {
			outcome = ev.ErrorKind
		}
		rows = append(rows, []string{
			ev.OccurredAt,
			yesNo(ev.Granted),
			outcome,
			ev.Identifier,
			score,
			ev.AttemptID,
		})
	}
	return renderTable([]column{
		{title: "Time"},
		{title: "Granted"},
		{title: "Outcome"},
		{title: "Identifier"},
		{title: "Score", numeric: true},
		{title: "Attempt"},
	}, rows)
}

func dependencyLine(dep api.DependencyStatus, colorize bool) string {
	switch {
	case dep.Available:
		return renderStatusLine(dep.Name, statusOK, dep.Command, colorize)
	case dep.Optional:
		return renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize)
	default:
		return renderStatusLine(dep.Name, statusError, dep.Detail, colorize)
	}
}
