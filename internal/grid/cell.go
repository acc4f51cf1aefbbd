package grid

// EmptyMarker is shown for a loaded value that is absent, so it never reads
// as a blank or still-loading cell.
const EmptyMarker = "—"

type Kind int

const (
	KindPlain Kind = iota
	KindEmpty
	KindBadge
	KindBadgePrimary
	KindMuted
	KindLoading
	KindAction
)

type Cell struct {
	Text string
	Kind Kind
}

func Text(s string) Cell { return Cell{Text: s, Kind: KindPlain} }

func Empty() Cell { return Cell{Text: EmptyMarker, Kind: KindEmpty} }

func Badge(s string) Cell { return Cell{Text: s, Kind: KindBadge} }

func PrimaryBadge(s string) Cell { return Cell{Text: s, Kind: KindBadgePrimary} }

func Muted(s string) Cell { return Cell{Text: s, Kind: KindMuted} }

func Loading(s string) Cell { return Cell{Text: s, Kind: KindLoading} }

func Action(s string) Cell { return Cell{Text: s, Kind: KindAction} }

// Optional renders value with kind when ok, otherwise the empty marker.
func Optional(value string, ok bool, kind Kind) Cell {
	if !ok || value == "" {
		return Empty()
	}
	return Cell{Text: value, Kind: kind}
}
