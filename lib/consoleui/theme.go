// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the binder console. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	FocusBorderColor lipgloss.Color
	HelpText         lipgloss.Color

	// Outcome colors.
	SuccessColor lipgloss.Color
	FailureColor lipgloss.Color

	// Assurance badge for verbs that require an authenticated session.
	AssuranceColor lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("81"),
	BorderColor:      lipgloss.Color("238"),
	FocusBorderColor: lipgloss.Color("81"),
	HelpText:         lipgloss.Color("243"),

	SuccessColor: lipgloss.Color("78"),
	FailureColor: lipgloss.Color("203"),

	AssuranceColor: lipgloss.Color("214"),
}
