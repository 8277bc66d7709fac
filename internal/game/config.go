package game

// Configuration is the host-editable room setup.
type Configuration struct {
	VotingDurationSeconds int    `json:"votingDurationSeconds"`
	ReaderOn              bool   `json:"readerOn"`
	MaxScore              int    `json:"maxScore"`
	Public                bool   `json:"public"`
	AdultOnly             bool   `json:"adultOnly"`
	Deck                  string `json:"deck"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		VotingDurationSeconds: 60,
		ReaderOn:              true,
		MaxScore:              10,
		Public:                false,
		AdultOnly:             false,
		Deck:                  "normal",
	}
}

func (c Configuration) valid() bool {
	switch c.VotingDurationSeconds {
	case 30, 60, 90:
	default:
		return false
	}
	switch c.MaxScore {
	case 10, 15, 20:
	default:
		return false
	}
	return c.Deck != ""
}
