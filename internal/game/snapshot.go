package game

import "time"

// TimeoutInfo names an armed phase timer and its absolute deadline, so a
// late joiner can render the exact remaining time.
type TimeoutInfo struct {
	Name     string    `json:"name"`
	Deadline time.Time `json:"deadline"`
}

// RoomSnapshot is the per-player view sent in create/join replies. Only the
// receiving player's hand is included, and face-down votes have their card
// blanked.
type RoomSnapshot struct {
	ID            string        `json:"id"`
	Phase         Phase         `json:"phase"`
	Configuration Configuration `json:"configuration"`
	Players       []PlayerInfo  `json:"players"`
	Hand          []Card        `json:"hand"`
	Prompt        *Card         `json:"prompt,omitempty"`
	Votes         []Vote        `json:"votes"`
	JudgeID       string        `json:"judgeId,omitempty"`
	Timeout       *TimeoutInfo  `json:"timeout,omitempty"`
}

func (r *Room) Snapshot(playerID string) RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RoomSnapshot{
		ID:            r.id,
		Phase:         r.phase,
		Configuration: r.cfg,
		Players:       r.playersInfo(),
	}
	if p := r.player(playerID); p != nil {
		snap.Hand = append([]Card(nil), p.Hand...)
	}
	if j := r.judge(); j != nil {
		snap.JudgeID = j.ID
	}
	if r.phase.InRound() {
		prompt := r.prompt
		snap.Prompt = &prompt
	}
	snap.Votes = make([]Vote, 0, len(r.votes))
	for _, v := range r.votes {
		vv := *v
		if !vv.Visible {
			vv.Card = Card{}
		}
		snap.Votes = append(snap.Votes, vv)
	}
	for _, name := range []string{TimerStarting, TimerVoting, TimerWinnerView} {
		if t, ok := r.timers[name]; ok {
			snap.Timeout = &TimeoutInfo{Name: name, Deadline: t.Deadline()}
			break
		}
	}
	return snap
}

// RoomInfo is the publicly-discoverable projection of a room, mirrored into
// the session directory. ok is false for private rooms.
type RoomInfo struct {
	ID                    string
	Players               int
	Playing               bool
	VotingDurationSeconds int
	AdultOnly             bool
	HostNickname          string
	HostAvatar            int
}

func (r *Room) PublicInfo() (RoomInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cfg.Public {
		return RoomInfo{}, false
	}
	info := RoomInfo{
		ID:                    r.id,
		Players:               r.connected(),
		Playing:               r.phase.InRound(),
		VotingDurationSeconds: r.cfg.VotingDurationSeconds,
		AdultOnly:             r.cfg.AdultOnly,
	}
	for _, p := range r.players {
		if p.Host {
			info.HostNickname = p.Nickname
			info.HostAvatar = p.Avatar
			break
		}
	}
	return info, true
}
