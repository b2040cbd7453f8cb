package install

// State is a step of the installation pipeline. Steps run strictly in order;
// Failed can follow any of them.
type State int

const (
	StateRequested State = iota
	StateDownloading
	StateExtracting
	StateBuilding
	StatePromoting
	StateInstalled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateDownloading:
		return "downloading"
	case StateExtracting:
		return "extracting"
	case StateBuilding:
		return "building"
	case StatePromoting:
		return "promoting"
	case StateInstalled:
		return "installed"
	default:
		return "failed"
	}
}
