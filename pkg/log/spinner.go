package log

import (
	"github.com/pterm/pterm"
)

const (
	AnalysisInProgressMsg        string = "Analysis in progress..."
	AnalysisInProgressSuccessMsg string = "Analysis in progress... Done."
	AnalysisInProgressErrorMsg   string = "Analysis in progress... Error."

	RenderInProgressMsg        string = "Rendering reports..."
	RenderInProgressSuccessMsg string = "Rendering reports... Done."
	RenderInProgressErrorMsg   string = "Rendering reports... Error."
)

func GetPtermErrorStyle() *pterm.Style {
	return &pterm.Style{pterm.FgRed, pterm.Bold}
}

func GetPtermSuccessStyle() *pterm.Style {
	return &pterm.Style{pterm.FgGreen}
}

// Set this, so it can be checked and used in the logging process
// to ensure correct output
var currentProgressSpinner *pterm.SpinnerPrinter

func CreateCurrentProgressSpinner(style *pterm.Style, msg string) {
	// error can be ignored here since pterm doesn't return one
	currentProgressSpinner, _ = pterm.DefaultSpinner.Start(msg)
	if style != nil {
		currentProgressSpinner.Style = style
		currentProgressSpinner.MessageStyle = style
	}
}

func StopCurrentProgressSpinner(style *pterm.Style, msg string) {
	if currentProgressSpinner == nil {
		return
	}
	if style != nil {
		currentProgressSpinner.Style = style
		currentProgressSpinner.MessageStyle = style
	}

	if msg != "" {
		currentProgressSpinner.UpdateText(msg)
	}

	// error can be ignored here since pterm doesn't return one
	currentProgressSpinner.RemoveWhenDone = false
	_ = currentProgressSpinner.Stop()
	currentProgressSpinner = nil
}
