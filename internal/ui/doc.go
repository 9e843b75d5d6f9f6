// Package ui is the terminal dashboard built on Bubble Tea.
//
// The root AppModel switches between the resource table and the detail view
// and stacks overlays (refresh progress, recent traces) on top. All state
// lives in a dashboard.Controller; views render its snapshots. Controller and
// trace changes reach the program as messages through Bind.
package ui
