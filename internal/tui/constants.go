package tui

import "time"

// Package-level constants to avoid magic numbers and improve readability.
const (
	// panFraction is the share of the visible span moved by one pan key press.
	panFraction = 0.25

	// mapCols and mapRows size the character grid the map panel is drawn on.
	mapCols = 48
	mapRows = 16

	// leftColumnMax caps the map column width; the list column takes the rest.
	leftColumnMax  = 54
	rightColumnMax = 60
	// minTwoColumnWidth is the narrowest terminal that still gets side-by-side columns.
	minTwoColumnWidth = leftColumnMax + 30

	// listMinHeight enforces a minimum marker list height to avoid collapsing.
	listMinHeight = 5
	// listOverheadLines is the header, status and footer lines around the list.
	listOverheadLines = 8
	// filterPanelLines is the heading plus one line per dimension.
	filterPanelLines = 5

	// geocodeTimeout bounds a single search request.
	geocodeTimeout = 10 * time.Second
)
