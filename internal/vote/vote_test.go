package vote

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/siohaza/teevote/internal/player"
	"github.com/siohaza/teevote/internal/protocol"
)

type sent struct {
	clientID int
	msg      protocol.Message
}

type recordingSender struct {
	messages []sent
}

func (r *recordingSender) Send(clientID int, msg protocol.Message) {
	r.messages = append(r.messages, sent{clientID, msg})
}

func (r *recordingSender) reset() {
	r.messages = nil
}

func (r *recordingSender) chats() []string {
	var out []string
	for _, s := range r.messages {
		if chat, ok := s.msg.(*protocol.SvChat); ok {
			out = append(out, chat.Message)
		}
	}
	return out
}

func (r *recordingSender) last(t protocol.MessageType) protocol.Message {
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].msg.Type() == t {
			return r.messages[i].msg
		}
	}
	return nil
}

type recordingDispatcher struct {
	lines []string
}

func (d *recordingDispatcher) Execute(line string) error {
	d.lines = append(d.lines, line)
	return nil
}

type fixture struct {
	manager    *Manager
	players    *player.Manager
	sender     *recordingSender
	dispatcher *recordingDispatcher
	now        time.Time
}

func newFixture(t *testing.T, numPlayers int, cfg Config) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	players := player.NewManager()
	for i := range numPlayers {
		p := player.New(i, "127.0.0.1", now)
		p.Name = []string{"alice", "bob", "carol", "dave", "erin", "frank"}[i]
		p.State = player.PlayerStateReady
		players.Add(p)
	}

	options := NewOptionStore(logger)
	options.Register("", "sv_map dm1")
	options.Register("", "sv_map ctf2")

	sender := &recordingSender{}
	dispatcher := &recordingDispatcher{}

	m := NewManager(cfg, options, players, NewGateway(sender), logger)
	m.SetDispatcher(dispatcher)

	return &fixture{
		manager:    m,
		players:    players,
		sender:     sender,
		dispatcher: dispatcher,
		now:        now,
	}
}

func (f *fixture) vote(t *testing.T, clientID, choice int) {
	t.Helper()
	if !f.manager.CastVote(clientID, choice, f.now) {
		t.Fatalf("vote from %d was ignored", clientID)
	}
}

func (f *fixture) expireVote() {
	f.manager.Tick(f.manager.Active().CloseTime)
}

func TestCallVoteStartsSession(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())

	if err := f.manager.CallVote(0, "option", "SV_MAP DM1", f.now); err != nil {
		t.Fatalf("CallVote() error = %v", err)
	}

	s := f.manager.Active()
	if s == nil {
		t.Fatal("no active session")
	}
	if s.Command != "sv_map dm1" || s.Kind != KindOption || s.CreatorID != 0 {
		t.Errorf("unexpected session %+v", s)
	}
	if !s.CloseTime.Equal(f.now.Add(DefaultDuration)) {
		t.Errorf("CloseTime = %v, want now+%v", s.CloseTime, DefaultDuration)
	}

	creator, _ := f.players.Get(0)
	if creator.Vote != player.VoteYes {
		t.Errorf("creator vote = %v, want yes", creator.Vote)
	}

	chats := f.sender.chats()
	if len(chats) != 1 || chats[0] != "alice called vote to change server option 'sv_map dm1'" {
		t.Errorf("chats = %q", chats)
	}

	set, ok := f.sender.last(protocol.MsgTypeSvVoteSet).(*protocol.SvVoteSet)
	if !ok || set.Timeout != 25 || set.Command != "sv_map dm1" {
		t.Errorf("vote set = %+v", set)
	}

	status, ok := f.sender.last(protocol.MsgTypeSvVoteStatus).(*protocol.SvVoteStatus)
	if !ok || status.Yes != 1 || status.No != 0 || status.Total != 3 {
		t.Errorf("vote status = %+v", status)
	}
	for _, m := range f.sender.messages {
		if m.msg.Type() != protocol.MsgTypeSvChat && m.clientID != protocol.BroadcastID {
			t.Errorf("%s sent to %d, want broadcast", m.msg.Type(), m.clientID)
		}
	}
}

func TestCallVoteRejectsWhileActive(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())

	if err := f.manager.CallVote(0, "option", "sv_map dm1", f.now); err != nil {
		t.Fatal(err)
	}
	first := f.manager.Active()

	err := f.manager.CallVote(1, "option", "sv_map ctf2", f.now.Add(time.Second))
	if !errors.Is(err, ErrVoteInProgress) {
		t.Fatalf("CallVote() error = %v, want ErrVoteInProgress", err)
	}
	if err.Error() != "Wait for current vote to end before calling a new one." {
		t.Errorf("message = %q", err.Error())
	}
	if f.manager.Active() != first || first.Command != "sv_map dm1" {
		t.Error("active session changed")
	}
}

func TestFirstVoteSticks(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)

	f.vote(t, 1, 1)
	if f.manager.CastVote(1, -1, f.now) {
		t.Error("second cast was accepted")
	}
	if f.manager.CastVote(0, -1, f.now) {
		t.Error("creator changed their vote")
	}

	yes, no, _ := f.players.VoteCounts()
	if yes != 2 || no != 0 {
		t.Errorf("counts = %d/%d, want 2/0", yes, no)
	}
}

func TestCastVoteIgnoredWhenIdleOrZero(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())

	if f.manager.CastVote(1, 1, f.now) {
		t.Error("cast accepted with no vote running")
	}

	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	if f.manager.CastVote(1, 0, f.now) {
		t.Error("zero ballot accepted")
	}
	if f.manager.CastVote(9, 1, f.now) {
		t.Error("ballot from unknown client accepted")
	}
}

func TestMajorityPassesAndClears(t *testing.T) {
	f := newFixture(t, 5, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.vote(t, 2, 1)
	f.vote(t, 3, -1)

	f.manager.Tick(f.now.Add(10 * time.Second))
	if !f.manager.HasActiveVote() {
		t.Fatal("vote resolved before its deadline")
	}

	f.sender.reset()
	f.expireVote()

	if f.manager.HasActiveVote() {
		t.Fatal("vote still active after deadline")
	}
	if len(f.dispatcher.lines) != 1 || f.dispatcher.lines[0] != "sv_map dm1" {
		t.Errorf("dispatched = %q", f.dispatcher.lines)
	}

	f.players.ForEach(func(p *player.Player) {
		if p.Vote != player.VoteNone {
			t.Errorf("player %d vote = %v after resolution", p.ID, p.Vote)
		}
	})

	set, ok := f.sender.last(protocol.MsgTypeSvVoteSet).(*protocol.SvVoteSet)
	if !ok || set.Timeout != 0 {
		t.Errorf("cleared vote set = %+v", set)
	}
	status, ok := f.sender.last(protocol.MsgTypeSvVoteStatus).(*protocol.SvVoteStatus)
	if !ok || status.Yes != 0 || status.No != 0 || status.Description != "" {
		t.Errorf("cleared status = %+v", status)
	}

	chats := f.sender.chats()
	if len(chats) != 1 || chats[0] != "Vote passed" {
		t.Errorf("chats = %q", chats)
	}
}

func TestTieFails(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, -1)

	f.expireVote()

	if len(f.dispatcher.lines) != 0 {
		t.Errorf("tie dispatched %q", f.dispatcher.lines)
	}
	if f.manager.HasActiveVote() {
		t.Error("vote still active")
	}
	if got := f.sender.chats(); got[len(got)-1] != "Vote failed" {
		t.Errorf("last chat = %q", got[len(got)-1])
	}
}

func TestMinYesVotes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinYesVotes = 2
	f := newFixture(t, 3, cfg)

	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.expireVote()

	if len(f.dispatcher.lines) != 0 {
		t.Error("vote passed below the yes threshold")
	}
}

func TestCreatorDisconnectAborts(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.vote(t, 2, 1)

	f.players.Remove(0)
	f.manager.HandleDisconnect(0, f.now)

	if f.manager.HasActiveVote() {
		t.Fatal("vote survived creator disconnect")
	}
	if len(f.dispatcher.lines) != 0 {
		t.Errorf("aborted vote dispatched %q", f.dispatcher.lines)
	}
	if got := f.sender.chats(); got[len(got)-1] != "Vote aborted" {
		t.Errorf("last chat = %q", got[len(got)-1])
	}
}

func TestOtherDisconnectKeepsVote(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)

	f.players.Remove(2)
	f.manager.HandleDisconnect(2, f.now)

	if !f.manager.HasActiveVote() {
		t.Error("vote aborted by an unrelated disconnect")
	}
}

func TestCooldown(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.expireVote()

	err := f.manager.CallVote(0, "option", "sv_map dm1", f.now.Add(35*time.Second))
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("CallVote() error = %v, want *CooldownError", err)
	}
	if err.Error() != "You must wait 26 seconds before making another vote" {
		t.Errorf("message = %q", err.Error())
	}

	if err := f.manager.CallVote(0, "option", "sv_map dm1", f.now.Add(61*time.Second)); err != nil {
		t.Errorf("CallVote() after cooldown error = %v", err)
	}
}

func TestCooldownSurvivesPassedVote(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.expireVote()

	if len(f.dispatcher.lines) != 1 {
		t.Fatalf("dispatched = %q, want the vote to pass", f.dispatcher.lines)
	}

	err := f.manager.CallVote(0, "option", "sv_map ctf2", f.now.Add(30*time.Second))
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("CallVote() after passed vote error = %v, want *CooldownError", err)
	}
	if err.Error() != "You must wait 31 seconds before making another vote" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCreatorAloneCannotPass(t *testing.T) {
	for _, kind := range []struct{ voteType, value string }{
		{"option", "sv_map dm1"},
		{"kick", "3"},
	} {
		f := newFixture(t, 6, DefaultConfig())
		if err := f.manager.CallVote(0, kind.voteType, kind.value, f.now); err != nil {
			t.Fatalf("CallVote(%s) error = %v", kind.voteType, err)
		}

		f.expireVote()

		if len(f.dispatcher.lines) != 0 {
			t.Errorf("%s vote with no ballots dispatched %q", kind.voteType, f.dispatcher.lines)
		}
		if got := f.sender.chats(); got[len(got)-1] != "Vote failed" {
			t.Errorf("%s: last chat = %q", kind.voteType, got[len(got)-1])
		}
	}
}

func TestMajorityOfAllPlayersRequired(t *testing.T) {
	f := newFixture(t, 6, DefaultConfig())
	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.vote(t, 2, 1)
	f.vote(t, 3, -1)

	f.expireVote()
	if len(f.dispatcher.lines) != 0 {
		t.Fatalf("3 of 6 passed: %q", f.dispatcher.lines)
	}

	f.now = f.now.Add(time.Minute)
	f.manager.CallVote(1, "option", "sv_map dm1", f.now)
	f.vote(t, 0, 1)
	f.vote(t, 2, 1)
	f.vote(t, 3, 1)

	f.expireVote()
	if len(f.dispatcher.lines) != 1 {
		t.Errorf("4 of 6 did not pass: %q", f.dispatcher.lines)
	}
}

func TestVoteTrySpam(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())

	err := f.manager.CallVote(0, "option", "nope", f.now)
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("CallVote() error = %v, want ErrUnknownOption", err)
	}
	if err.Error() != "'nope' isn't an option on this server" {
		t.Errorf("message = %q", err.Error())
	}

	err = f.manager.CallVote(0, "option", "sv_map dm1", f.now.Add(time.Second))
	if !errors.Is(err, ErrVoteSpam) || !IsSilent(err) {
		t.Fatalf("CallVote() error = %v, want silent ErrVoteSpam", err)
	}

	if err := f.manager.CallVote(0, "option", "sv_map dm1", f.now.Add(4*time.Second)); err != nil {
		t.Errorf("CallVote() error = %v", err)
	}
}

func TestVoteTrySpamDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpamProtection = false
	f := newFixture(t, 2, cfg)

	f.manager.CallVote(0, "option", "nope", f.now)
	if err := f.manager.CallVote(0, "option", "sv_map dm1", f.now); err != nil {
		t.Errorf("CallVote() error = %v", err)
	}
}

func TestUnknownVoteTypeIsSilent(t *testing.T) {
	f := newFixture(t, 1, DefaultConfig())

	err := f.manager.CallVote(0, "shuffle", "", f.now)
	if !errors.Is(err, ErrUnknownVoteType) || !IsSilent(err) {
		t.Errorf("CallVote() error = %v", err)
	}
	if f.manager.HasActiveVote() {
		t.Error("unknown type started a vote")
	}
}

func TestKickVotes(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())

	for _, value := range []string{"7", "abc", ""} {
		f.players.ForEach(func(p *player.Player) { p.LastVoteTry = time.Time{} })
		if err := f.manager.CallVote(0, "kick", value, f.now); !errors.Is(err, ErrInvalidKickTarget) {
			t.Errorf("kick %q: error = %v, want ErrInvalidKickTarget", value, err)
		}
	}

	f.players.ForEach(func(p *player.Player) { p.LastVoteTry = time.Time{} })
	if err := f.manager.CallVote(0, "KICK", "2", f.now); err != nil {
		t.Fatalf("CallVote(kick) error = %v", err)
	}

	s := f.manager.Active()
	if s.Kind != KindKick || s.Command != "kick 2" || s.Description != "Kick 'carol'" || s.TargetID != 2 {
		t.Errorf("kick session = %+v", s)
	}
	if chats := f.sender.chats(); chats[len(chats)-1] != "alice called for vote to kick 'carol'" {
		t.Errorf("chat = %q", chats[len(chats)-1])
	}

	f.players.Remove(2)
	f.manager.HandleDisconnect(2, f.now)
	if f.manager.HasActiveVote() {
		t.Error("kick vote survived target disconnect")
	}
}

func TestKickTargetMustBeInGame(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	f.players.Add(player.New(2, "127.0.0.1", f.now))

	err := f.manager.CallVote(0, "kick", "2", f.now)
	if !errors.Is(err, ErrInvalidKickTarget) {
		t.Errorf("CallVote() error = %v, want ErrInvalidKickTarget", err)
	}
	if f.manager.HasActiveVote() {
		t.Error("kick vote started against a connecting client")
	}
}

func TestConnectingClientsNotInTotal(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	f.players.Add(player.New(2, "127.0.0.1", f.now))

	f.manager.CallVote(0, "option", "sv_map dm1", f.now)

	status, ok := f.sender.last(protocol.MsgTypeSvVoteStatus).(*protocol.SvVoteStatus)
	if !ok || status.Total != 2 {
		t.Errorf("vote status = %+v, want total 2", status)
	}
}

func TestKickVoteBecomesBan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KickBanMinutes = 5
	f := newFixture(t, 2, cfg)

	if err := f.manager.CallVote(0, "kick", "1", f.now); err != nil {
		t.Fatal(err)
	}
	if s := f.manager.Active(); s.Kind != KindBan || s.Command != "ban 1 5" {
		t.Errorf("session = %+v", s)
	}
}

func TestKickDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KickEnabled = false
	f := newFixture(t, 2, cfg)

	err := f.manager.CallVote(0, "kick", "1", f.now)
	if !errors.Is(err, ErrKickDisabled) {
		t.Errorf("CallVote() error = %v, want ErrKickDisabled", err)
	}
}

func TestEnforce(t *testing.T) {
	f := newFixture(t, 3, DefaultConfig())

	if err := f.manager.Enforce(EnforceYes); !errors.Is(err, ErrNoActiveVote) {
		t.Errorf("Enforce() with no vote error = %v", err)
	}

	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.vote(t, 2, 1)
	if err := f.manager.Enforce(EnforceNo); err != nil {
		t.Fatal(err)
	}
	f.manager.Tick(f.now)
	if f.manager.HasActiveVote() || len(f.dispatcher.lines) != 0 {
		t.Error("forced no did not fail the vote immediately")
	}

	f.manager.CallVote(1, "option", "sv_map ctf2", f.now)
	f.vote(t, 0, -1)
	f.vote(t, 2, -1)
	f.manager.Enforce(EnforceYes)
	f.manager.Tick(f.now)
	if len(f.dispatcher.lines) != 1 || f.dispatcher.lines[0] != "sv_map ctf2" {
		t.Errorf("forced yes dispatched %q", f.dispatcher.lines)
	}
}

type countingEvents struct {
	started, cast int
	outcomes      []Outcome
}

func (c *countingEvents) OnVoteStarted(*Session)      { c.started++ }
func (c *countingEvents) OnVoteCast(int, player.Vote) { c.cast++ }

func (c *countingEvents) OnVoteResolved(_ *Session, o Outcome) {
	c.outcomes = append(c.outcomes, o)
}

func TestEventsAreNotified(t *testing.T) {
	f := newFixture(t, 2, DefaultConfig())
	events := &countingEvents{}
	f.manager.SetEvents(events)

	f.manager.CallVote(0, "option", "sv_map dm1", f.now)
	f.vote(t, 1, 1)
	f.expireVote()

	if events.started != 1 || events.cast != 1 {
		t.Errorf("started=%d cast=%d", events.started, events.cast)
	}
	if len(events.outcomes) != 1 || events.outcomes[0] != OutcomePassed {
		t.Errorf("outcomes = %v", events.outcomes)
	}
}
