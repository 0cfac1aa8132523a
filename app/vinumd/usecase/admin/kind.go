package admin

import "strings"

// Kind is the kind of a vinum object.
type Kind int

const (
	// KindDrive : drive object.
	KindDrive Kind = iota
	// KindSubdisk : subdisk object.
	KindSubdisk
	// KindPlex : plex object.
	KindPlex
	// KindVolume : volume object.
	KindVolume
)

func (k Kind) String() string {
	switch k {
	case KindDrive:
		return "drive"
	case KindSubdisk:
		return "subdisk"
	case KindPlex:
		return "plex"
	case KindVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// ParseKind returns the kind of the given name. Short names are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "drive", "d":
		return KindDrive, nil
	case "subdisk", "sd", "s":
		return KindSubdisk, nil
	case "plex", "p":
		return KindPlex, nil
	case "volume", "vol", "v":
		return KindVolume, nil
	default:
		return 0, ErrInvalidKind
	}
}
