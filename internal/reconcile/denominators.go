package reconcile

// ReferenceSet identifies a set from its printed denominator alone.
type ReferenceSet struct {
	Name string
	Year int
	Era  string
}

// denominators lists sets whose printed total is unique within their era,
// so "/102" is enough to pin the card to Base Set.
var denominators = map[int]ReferenceSet{
	102: {Name: "Base Set", Year: 1999, Era: "WOTC"},
	64:  {Name: "Jungle", Year: 1999, Era: "WOTC"},
	62:  {Name: "Fossil", Year: 1999, Era: "WOTC"},
	82:  {Name: "Team Rocket", Year: 2000, Era: "WOTC"},
	132: {Name: "Gym Heroes", Year: 2000, Era: "WOTC"},
	111: {Name: "Neo Genesis", Year: 2000, Era: "WOTC"},
	75:  {Name: "Neo Discovery", Year: 2001, Era: "WOTC"},
	66:  {Name: "Neo Revelation", Year: 2001, Era: "WOTC"},
	113: {Name: "Neo Destiny", Year: 2002, Era: "WOTC"},
	165: {Name: "Legendary Collection", Year: 2002, Era: "WOTC"},
	147: {Name: "Expedition Base Set", Year: 2002, Era: "WOTC"},
	182: {Name: "Aquapolis", Year: 2003, Era: "WOTC"},
	186: {Name: "Skyridge", Year: 2003, Era: "WOTC"},
}

// LookupDenominator returns the reference set printed with total, if known.
func LookupDenominator(total int) (ReferenceSet, bool) {
	set, ok := denominators[total]
	return set, ok
}
