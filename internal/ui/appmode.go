package ui

// AppMode is the top-level screen: the resource table or one resource's details.
type AppMode int

const (
	ModeResources AppMode = iota
	ModeDetail
)

func (m AppMode) String() string {
	switch m {
	case ModeResources:
		return "Resources"
	case ModeDetail:
		return "Detail"
	default:
		return "Unknown"
	}
}
