package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseStarting       Phase = "starting"
	PhaseVoting         Phase = "voting"
	PhaseChoosing       Phase = "choosing"
	PhaseChoosingWinner Phase = "choosingwinner"
	PhaseWinnerCardView Phase = "winnercardview"
	PhaseEnd            Phase = "end"
)

// InRound reports whether the phase is part of an active round. The
// complement (waiting, starting, end) is lobby-like: players can come and go
// freely and the host can reconfigure or (re)start the game.
func (p Phase) InRound() bool {
	switch p {
	case PhaseVoting, PhaseChoosing, PhaseChoosingWinner, PhaseWinnerCardView:
		return true
	}
	return false
}

const (
	HandSize   = 10
	MaxPlayers = 10
	MinPlayers = 3
)

// Shortened by tests; production values otherwise.
var (
	startDelay      = 3 * time.Second
	winnerViewDelay = 5 * time.Second
	reconnectGrace  = 30 * time.Second
)

// Named phase timers. Each belongs to exactly one phase and is cancelled as
// the first action of leaving that phase, so a stale fire never advances a
// phase the room has already left.
const (
	TimerStarting   = "starting"
	TimerVoting     = "voting"
	TimerWinnerView = "winnercardview"
)

// Room is one play session: its players (list order is the judge rotation),
// draw piles, votes and phase timers. Pure in-process logic, no network I/O.
// All operations serialize on the room's mutex; timer callbacks take the same
// path, so a room's mutations never interleave.
type Room struct {
	mu sync.Mutex

	id       string
	version  int
	phase    Phase
	cfg      Configuration
	players  []*Player
	votes    []*Vote
	prompt   Card
	prompts  *pile
	response *pile
	provider DeckProvider
	timers   map[string]*Timer

	// lastWinnerID is the round winner shown during winnercardview.
	lastWinnerID string

	events chan Event
	closed bool
	log    *zap.Logger
}

// NewRoom builds an empty room in the waiting phase. version is the creator's
// client version; every joiner must match it.
func NewRoom(id string, version int, provider DeckProvider, log *zap.Logger) *Room {
	return &Room{
		id:       id,
		version:  version,
		phase:    PhaseWaiting,
		cfg:      DefaultConfiguration(),
		provider: provider,
		timers:   make(map[string]*Timer),
		events:   make(chan Event, 64),
		log:      log.With(zap.String("room", id)),
	}
}

func (r *Room) ID() string { return r.id }

// Events delivers the room's event stream. The consumer must keep draining it
// for the lifetime of the room; the channel closes on Close.
func (r *Room) Events() <-chan Event { return r.events }

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) ConnectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected()
}

func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected() == 0
}

// TimeoutDeadline reports when the named phase timer fires, if it is armed.
func (r *Room) TimeoutDeadline(name string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[name]
	if !ok {
		return time.Time{}, false
	}
	return t.Deadline(), true
}

// Join adds a new player, or revives a disconnected seat whose nickname
// matches while a game is running. The first player ever becomes host.
func (r *Room) Join(nickname string, avatar int, clientVersion int) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrSessionNotFound
	}
	if clientVersion != r.version {
		return nil, ErrVersionMismatch
	}
	for _, p := range r.players {
		if !p.Disconnected && p.Nickname == nickname {
			return nil, ErrNicknameTaken
		}
	}

	if r.phase.InRound() {
		p := r.disconnectedByNickname(nickname)
		if p == nil {
			return nil, ErrGameAlreadyStarted
		}
		if p.removal != nil {
			p.removal.Stop()
			p.removal = nil
		}
		p.Disconnected = false
		p.Avatar = avatar
		r.emit(PlayerJoined{Player: p.info(), Players: r.playersInfo()})
		return p, nil
	}

	if len(r.players) >= MaxPlayers {
		return nil, ErrTooManyPlayers
	}
	p := &Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Avatar:   avatar,
		Host:     len(r.players) == 0,
	}
	r.players = append(r.players, p)
	r.emit(PlayerJoined{Player: p.info(), Players: r.playersInfo()})
	return p, nil
}

// Leave handles a disconnect. Lobby-like phases drop the seat outright;
// in-round the seat is kept disconnected for the grace window so the same
// nickname can reclaim it. Unknown ids are a no-op (the connection teardown
// path may race a kick).
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	idx := r.indexOf(playerID)
	if idx < 0 || r.players[idx].Disconnected {
		return
	}
	p := r.players[idx]
	wasHost, wasJudge := p.Host, p.Judge

	if r.phase.InRound() {
		p.Disconnected = true
		p.Host = false
		id := p.ID
		p.removal = NewTimer(time.Now().Add(reconnectGrace), func() { r.purge(id) })
	} else {
		r.players = append(r.players[:idx], r.players[idx+1:]...)
	}

	if wasHost {
		r.transferHost()
	}
	if wasJudge && r.phase.InRound() {
		r.rotateJudge()
	}
	r.emit(PlayerLeft{PlayerID: playerID, Players: r.playersInfo()})

	r.afterSeatLost()
}

// Kick removes a player outright regardless of phase. Host only.
func (r *Room) Kick(callerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	caller := r.player(callerID)
	if caller == nil {
		return ErrNotAllowed
	}
	if !caller.Host {
		return ErrNotHost
	}
	if callerID == targetID {
		return ErrNotAllowed
	}
	idx := r.indexOf(targetID)
	if idx < 0 {
		return ErrNotAllowed
	}
	target := r.players[idx]
	if target.removal != nil {
		target.removal.Stop()
	}
	wasJudge := target.Judge
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.dropVote(targetID)
	if wasJudge && r.phase.InRound() {
		// The seat is gone; rotation continues from where it sat.
		r.assignJudgeFrom(idx)
	}
	r.emit(PlayerKicked{PlayerID: targetID, Players: r.playersInfo()})

	r.afterSeatLost()
	return nil
}

// afterSeatLost runs the shared departure checks: room empty, game no longer
// viable, or a pending phase now complete because the holdout left. The
// minimum-player rule covers the start delay too, so a departure during
// starting aborts before any cards are dealt.
func (r *Room) afterSeatLost() {
	if r.connected() == 0 {
		r.emit(RoomEmpty{})
		return
	}
	if (r.phase == PhaseStarting || r.phase.InRound()) && r.connected() < MinPlayers {
		r.endGame("")
		return
	}
	if r.phase == PhaseVoting {
		r.maybeFinishVoting()
	}
	r.maybeFinishChoosing()
}

// purge drops a seat whose grace window expired without a reconnect.
func (r *Room) purge(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	idx := r.indexOf(playerID)
	if idx < 0 || !r.players[idx].Disconnected {
		return
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.dropVote(playerID)
	r.emit(PlayerLeft{PlayerID: playerID, Players: r.playersInfo()})
	r.maybeFinishChoosing()
}

// UpdateConfiguration replaces the room setup. Host only, outside a round.
func (r *Room) UpdateConfiguration(callerID string, cfg Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	caller := r.player(callerID)
	if caller == nil {
		return ErrNotAllowed
	}
	if !caller.Host {
		return ErrNotHost
	}
	if r.phase.InRound() || !cfg.valid() {
		return ErrNotAllowed
	}
	r.cfg = cfg
	r.emit(ConfigurationChanged{Configuration: cfg})
	return nil
}

func (r *Room) StartGame(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	caller := r.player(callerID)
	if caller == nil {
		return ErrNotAllowed
	}
	if !caller.Host {
		return ErrNotHost
	}
	if r.phase != PhaseWaiting && r.phase != PhaseEnd {
		return ErrGameAlreadyStarted
	}
	if r.connected() < MinPlayers {
		return ErrNotEnoughPlayers
	}
	deck, err := r.provider.Deck(r.cfg.Deck)
	if err != nil || len(deck.Prompts) == 0 || len(deck.Responses) == 0 {
		r.log.Error("deck unavailable", zap.String("deck", r.cfg.Deck), zap.Error(err))
		return ErrInternal
	}
	r.prompts = newPile(deck.Prompts)
	r.response = newPile(deck.Responses)
	for _, p := range r.players {
		p.Score = 0
		p.Voted = false
		p.Judge = false
		p.Hand = nil
	}
	r.phase = PhaseStarting
	deadline := time.Now().Add(startDelay)
	r.schedule(TimerStarting, deadline, r.startingTimeout)
	r.emit(GameStarted{Players: r.playersInfo(), Deadline: deadline})
	return nil
}

func (r *Room) startingTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase != PhaseStarting {
		return
	}
	r.cancelTimer(TimerStarting)
	if r.connected() < MinPlayers {
		r.endGame("")
		return
	}
	r.beginVoting()
}

// beginVoting opens a round: rotate the judge, draw a prompt, top every
// connected hand back up to full and arm the voting timer.
func (r *Room) beginVoting() {
	r.cancelTimer(TimerWinnerView)
	r.phase = PhaseVoting
	r.rotateJudge()
	r.prompt = r.prompts.draw()
	r.votes = nil

	hands := make(map[string][]Card)
	for _, p := range r.players {
		p.Voted = false
		if p.Disconnected {
			continue
		}
		for len(p.Hand) < HandSize {
			p.Hand = append(p.Hand, r.response.draw())
		}
		hands[p.ID] = append([]Card(nil), p.Hand...)
	}

	judgeID := ""
	if j := r.judge(); j != nil {
		judgeID = j.ID
	}
	deadline := time.Now().Add(time.Duration(r.cfg.VotingDurationSeconds) * time.Second)
	r.schedule(TimerVoting, deadline, r.votingTimeout)
	r.emit(VotingStarted{
		Prompt:   r.prompt,
		JudgeID:  judgeID,
		Players:  r.playersInfo(),
		Hands:    hands,
		Deadline: deadline,
	})
}

func (r *Room) votingTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase != PhaseVoting {
		return
	}
	r.finishVoting()
}

// Vote submits a card against the current prompt.
func (r *Room) Vote(playerID, cardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	if r.phase != PhaseVoting {
		return ErrNotAllowed
	}
	p := r.player(playerID)
	if p == nil || p.Disconnected || p.Judge || p.Voted {
		return ErrNotAllowed
	}
	card, ok := p.takeCard(cardID)
	if !ok {
		return ErrInvalidCard
	}
	p.Voted = true
	r.votes = append(r.votes, &Vote{PlayerID: playerID, Card: card})
	r.emit(VoteCast{PlayerID: playerID, Count: len(r.votes)})
	r.maybeFinishVoting()
	return nil
}

func (r *Room) maybeFinishVoting() {
	if r.phase == PhaseVoting && len(r.votes) >= r.connectedNonJudge() {
		r.finishVoting()
	}
}

// maybeFinishChoosing advances once every card on the table is face-up,
// whether the last one was revealed by the judge or left with its owner.
func (r *Room) maybeFinishChoosing() {
	if r.phase != PhaseChoosing || len(r.votes) == 0 {
		return
	}
	for _, v := range r.votes {
		if !v.Visible {
			return
		}
	}
	r.phase = PhaseChoosingWinner
	r.emit(ChoosingWinnerStarted{Votes: r.votesCopy()})
}

// dropVote removes a departed seat's submission so the judge never faces a
// card that cannot be awarded.
func (r *Room) dropVote(playerID string) {
	for i, v := range r.votes {
		if v.PlayerID == playerID {
			r.votes = append(r.votes[:i], r.votes[i+1:]...)
			return
		}
	}
}

// finishVoting closes the voting phase: idle players get a uniformly random
// card from their hand so a round never stalls, and the votes are shuffled so
// reveal order carries no hint about who submitted first.
func (r *Room) finishVoting() {
	r.cancelTimer(TimerVoting)
	for _, p := range r.players {
		if p.Disconnected || p.Judge || p.Voted || len(p.Hand) == 0 {
			continue
		}
		i := rand.IntN(len(p.Hand))
		card := p.Hand[i]
		p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
		p.Voted = true
		r.votes = append(r.votes, &Vote{PlayerID: p.ID, Card: card})
		r.emit(VoteCast{PlayerID: p.ID, Count: len(r.votes)})
	}
	rand.Shuffle(len(r.votes), func(i, j int) {
		r.votes[i], r.votes[j] = r.votes[j], r.votes[i]
	})
	r.phase = PhaseChoosing
	r.emit(ChoosingStarted{Votes: r.votesCopy()})
}

// Choose flips one submission face-up. Judge only.
func (r *Room) Choose(callerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	if r.phase != PhaseChoosing {
		return ErrNotAllowed
	}
	caller := r.player(callerID)
	if caller == nil || !caller.Judge {
		return ErrNotAllowed
	}
	v := r.vote(targetID)
	if v == nil || v.Visible {
		return ErrNotAllowed
	}
	v.Visible = true
	r.emit(VoteRevealed{PlayerID: targetID, Card: v.Card})
	r.maybeFinishChoosing()
	return nil
}

// ChooseWinner awards the round. Judge only, all cards face-up.
func (r *Room) ChooseWinner(callerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	if r.phase != PhaseChoosingWinner {
		return ErrNotAllowed
	}
	caller := r.player(callerID)
	if caller == nil || !caller.Judge {
		return ErrNotAllowed
	}
	v := r.vote(targetID)
	winner := r.player(targetID)
	if v == nil || winner == nil {
		return ErrNotAllowed
	}
	v.Winner = true
	winner.Score++
	r.lastWinnerID = winner.ID
	r.phase = PhaseWinnerCardView
	deadline := time.Now().Add(winnerViewDelay)
	r.schedule(TimerWinnerView, deadline, r.winnerViewTimeout)
	r.emit(WinnerChosen{
		PlayerID: winner.ID,
		Card:     v.Card,
		Players:  r.playersInfo(),
		Deadline: deadline,
	})
	return nil
}

func (r *Room) winnerViewTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase != PhaseWinnerCardView {
		return
	}
	r.cancelTimer(TimerWinnerView)
	winner := r.player(r.lastWinnerID)
	if winner != nil && winner.Score >= r.cfg.MaxScore {
		r.endGame(winner.ID)
		return
	}
	r.beginVoting()
}

// endGame returns the room to a lobby-like state: disconnected seats are
// purged, scores and hands reset, piles dropped until the next start.
func (r *Room) endGame(winnerID string) {
	r.cancelTimer(TimerStarting)
	r.cancelTimer(TimerVoting)
	r.cancelTimer(TimerWinnerView)
	r.emit(GameEnded{WinnerID: winnerID, Players: r.playersInfo()})

	r.phase = PhaseEnd
	kept := r.players[:0]
	for _, p := range r.players {
		if p.Disconnected {
			if p.removal != nil {
				p.removal.Stop()
			}
			continue
		}
		p.Score = 0
		p.Voted = false
		p.Judge = false
		p.Hand = nil
		kept = append(kept, p)
	}
	r.players = kept
	r.votes = nil
	r.prompt = Card{}
	r.prompts = nil
	r.response = nil
	r.lastWinnerID = ""
}

// DiscardCards trades one point for a fresh full hand.
func (r *Room) DiscardCards(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	if r.phase != PhaseVoting {
		return ErrNotAllowed
	}
	p := r.player(playerID)
	if p == nil || p.Disconnected || p.Voted {
		return ErrNotAllowed
	}
	if p.Score < 1 {
		return ErrScoreTooLow
	}
	p.Score--
	p.Hand = nil
	for len(p.Hand) < HandSize {
		p.Hand = append(p.Hand, r.response.draw())
	}
	r.emit(CardsDiscarded{
		PlayerID: playerID,
		Score:    p.Score,
		Hand:     append([]Card(nil), p.Hand...),
	})
	return nil
}

func (r *Room) Chat(playerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionNotFound
	}
	p := r.player(playerID)
	if p == nil || p.Disconnected || message == "" {
		return ErrNotAllowed
	}
	r.emit(ChatMessage{
		ID:       uuid.NewString(),
		PlayerID: p.ID,
		Nickname: p.Nickname,
		Message:  message,
	})
	return nil
}

// Close tears the room down: all timers stopped, event channel closed. The
// room rejects every operation afterwards.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for name := range r.timers {
		r.timers[name].Stop()
		delete(r.timers, name)
	}
	for _, p := range r.players {
		if p.removal != nil {
			p.removal.Stop()
		}
	}
	close(r.events)
}

func (r *Room) emit(ev Event) {
	if r.closed {
		return
	}
	r.events <- ev
}

func (r *Room) schedule(name string, deadline time.Time, fn func()) {
	r.cancelTimer(name)
	r.timers[name] = NewTimer(deadline, fn)
}

func (r *Room) cancelTimer(name string) {
	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) player(playerID string) *Player {
	if i := r.indexOf(playerID); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) disconnectedByNickname(nickname string) *Player {
	for _, p := range r.players {
		if p.Disconnected && p.Nickname == nickname {
			return p
		}
	}
	return nil
}

func (r *Room) judge() *Player {
	for _, p := range r.players {
		if p.Judge {
			return p
		}
	}
	return nil
}

func (r *Room) vote(playerID string) *Vote {
	for _, v := range r.votes {
		if v.PlayerID == playerID {
			return v
		}
	}
	return nil
}

func (r *Room) connected() int {
	n := 0
	for _, p := range r.players {
		if !p.Disconnected {
			n++
		}
	}
	return n
}

func (r *Room) connectedNonJudge() int {
	n := 0
	for _, p := range r.players {
		if !p.Disconnected && !p.Judge {
			n++
		}
	}
	return n
}

// rotateJudge hands the judge role to the next connected player in list
// order, wrapping and skipping disconnected seats. List order is the rotation
// sequence; do not reorder players casually.
func (r *Room) rotateJudge() {
	start := 0
	for i, p := range r.players {
		if p.Judge {
			p.Judge = false
			start = i + 1
			break
		}
	}
	r.assignJudgeFrom(start)
}

func (r *Room) assignJudgeFrom(start int) {
	for off := 0; off < len(r.players); off++ {
		p := r.players[(start+off)%len(r.players)]
		if !p.Disconnected {
			p.Judge = true
			return
		}
	}
}

func (r *Room) transferHost() {
	for _, p := range r.players {
		if !p.Disconnected {
			p.Host = true
			return
		}
	}
}

func (r *Room) playersInfo() []PlayerInfo {
	out := make([]PlayerInfo, len(r.players))
	for i, p := range r.players {
		out[i] = p.info()
	}
	return out
}

func (r *Room) votesCopy() []Vote {
	out := make([]Vote, len(r.votes))
	for i, v := range r.votes {
		out[i] = *v
	}
	return out
}
