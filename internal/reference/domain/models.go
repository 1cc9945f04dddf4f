package domain

// ZipRange maps an inclusive span of five-digit US ZIP codes to a state.
type ZipRange struct {
	State string
	Start int
	End   int
}

func (r ZipRange) Contains(zip int) bool {
	return zip >= r.Start && zip <= r.End
}

func (r ZipRange) Width() int { return r.End - r.Start }

type Province struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
