package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/importer"
)

func getProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progressView renders importer progress as a spinner while fetching and a
// bar while media downloads. The importer never calls it concurrently.
type progressView struct {
	w       io.Writer
	spinner *progressbar.ProgressBar
	bar     *progressbar.ProgressBar
	deck    string
}

func newProgressView(w io.Writer) *progressView {
	return &progressView{w: w}
}

func (v *progressView) update(p importer.Progress) {
	switch p.State {
	case importer.StateFetchingDirect, importer.StateFetchingProxy:
		v.finish()
		label := " Fetching set..."
		if p.State == importer.StateFetchingProxy {
			label = " Retrying through proxy..."
		}
		v.spinner = getSpinner(v.w, label)
	case importer.StateAccessDenied, importer.StateFetchFailed:
		v.finish()
		color.New(color.FgYellow).Fprintf(v.w, "\n! %s failed for %s\n", stateLabel(p.State), p.Deck)
	case importer.StateDetected, importer.StateTerminalError:
		v.finish()
	case importer.StateDownloading:
		if v.bar == nil || v.deck != p.Deck {
			v.finish()
			v.deck = p.Deck
			v.bar = getProgressBar(v.w, p.Total, fmt.Sprintf(" Downloading media for %s", p.Deck))
		}
		v.bar.Set(p.Done)
		if p.Done == p.Total {
			v.finish()
		}
	}
}

func (v *progressView) finish() {
	if v.spinner != nil {
		v.spinner.Finish()
		v.spinner = nil
	}
	if v.bar != nil {
		v.bar.Finish()
		fmt.Fprintln(v.w)
		v.bar = nil
		v.deck = ""
	}
}

func stateLabel(s importer.State) string {
	if s == importer.StateAccessDenied {
		return "Access"
	}
	return "Fetch"
}

// remediation suggests what the user can do about a failed import.
func remediation(err error) string {
	switch models.Classify(err) {
	case models.KindAccessDenied:
		if models.IsCaptcha(err) {
			return "Quizlet answered with a captcha. Disable any VPN or proxy, wait a few minutes, or export cookies from a logged in browser (QUIZLET_COOKIES)."
		}
		return "The set is private or password protected. Check its sharing settings, or save the page source and use --html-file."
	case models.KindNotFound:
		return "The set does not exist. Check the set ID in the URL."
	case models.KindSchemaNotRecognized:
		return "The page layout was not recognized. Save the page source from your browser and retry with --html-file."
	case models.KindMalformedPayload, models.KindMalformedItem:
		return "The set data could not be read. Please report the set URL."
	case models.KindNetwork:
		var netErr *models.NetworkError
		if errors.As(err, &netErr) && netErr.Status != 0 {
			return fmt.Sprintf("Quizlet answered with HTTP %d. Try again later.", netErr.Status)
		}
		return "Could not reach Quizlet. Check your connection."
	default:
		return ""
	}
}
