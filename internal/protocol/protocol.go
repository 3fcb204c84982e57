package protocol

import (
	"fmt"
)

const (
	MaxClients = 16
	// BroadcastID addresses every connected client.
	BroadcastID = -1
	// TuneParamCount is the number of values every tune params message
	// carries. It is not sent on the wire; both ends must agree on it.
	TuneParamCount = 33
)

type MessageType int

const (
	MsgTypeSvMotd             MessageType = 1
	MsgTypeSvBroadcast        MessageType = 2
	MsgTypeSvChat             MessageType = 3
	MsgTypeSvTuneParams       MessageType = 6
	MsgTypeSvReadyToEnter     MessageType = 8
	MsgTypeSvVoteClearOptions MessageType = 11
	MsgTypeSvVoteOption       MessageType = 12
	MsgTypeSvVoteSet          MessageType = 13
	MsgTypeSvVoteStatus       MessageType = 14
	MsgTypeClSay              MessageType = 15
	MsgTypeClStartInfo        MessageType = 17
	MsgTypeClVote             MessageType = 21
	MsgTypeClCallVote         MessageType = 22
)

func (t MessageType) String() string {
	switch t {
	case MsgTypeSvMotd:
		return "sv_motd"
	case MsgTypeSvBroadcast:
		return "sv_broadcast"
	case MsgTypeSvChat:
		return "sv_chat"
	case MsgTypeSvTuneParams:
		return "sv_tune_params"
	case MsgTypeSvReadyToEnter:
		return "sv_ready_to_enter"
	case MsgTypeSvVoteClearOptions:
		return "sv_vote_clear_options"
	case MsgTypeSvVoteOption:
		return "sv_vote_option"
	case MsgTypeSvVoteSet:
		return "sv_vote_set"
	case MsgTypeSvVoteStatus:
		return "sv_vote_status"
	case MsgTypeClSay:
		return "cl_say"
	case MsgTypeClStartInfo:
		return "cl_start_info"
	case MsgTypeClVote:
		return "cl_vote"
	case MsgTypeClCallVote:
		return "cl_call_vote"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Message is one game message. The concrete types below form a closed set;
// handlers dispatch on them with a type switch.
type Message interface {
	Type() MessageType
	pack(p *Packer) error
	unpack(u *Unpacker)
}

// SvChat team values. A ClientID of ServerClientID marks a server message.
const (
	ChatAll        = 0
	ChatTeam       = 1
	ServerClientID = -1
)

type SvMotd struct {
	Message string
}

type SvBroadcast struct {
	Message string
}

type SvChat struct {
	Team     int
	ClientID int
	Message  string
}

// SvTuneParams values are sent as hundredths.
type SvTuneParams struct {
	Values []float64
}

type SvReadyToEnter struct{}

type SvVoteClearOptions struct{}

type SvVoteOption struct {
	Command string
}

// SvVoteSet announces a new vote. Timeout 0 means no vote is running.
type SvVoteSet struct {
	Timeout     int
	Description string
	Command     string
}

type SvVoteStatus struct {
	Description string
	Yes         int
	No          int
	Total       int
	TimeLeft    int
}

type ClSay struct {
	Team    bool
	Message string
}

type ClStartInfo struct {
	Name string
	Skin string
}

// ClVote is 1 for yes and -1 for no.
type ClVote struct {
	Vote int
}

type ClCallVote struct {
	VoteType string
	Value    string
}

func (*SvMotd) Type() MessageType             { return MsgTypeSvMotd }
func (*SvBroadcast) Type() MessageType        { return MsgTypeSvBroadcast }
func (*SvChat) Type() MessageType             { return MsgTypeSvChat }
func (*SvTuneParams) Type() MessageType       { return MsgTypeSvTuneParams }
func (*SvReadyToEnter) Type() MessageType     { return MsgTypeSvReadyToEnter }
func (*SvVoteClearOptions) Type() MessageType { return MsgTypeSvVoteClearOptions }
func (*SvVoteOption) Type() MessageType       { return MsgTypeSvVoteOption }
func (*SvVoteSet) Type() MessageType          { return MsgTypeSvVoteSet }
func (*SvVoteStatus) Type() MessageType       { return MsgTypeSvVoteStatus }
func (*ClSay) Type() MessageType              { return MsgTypeClSay }
func (*ClStartInfo) Type() MessageType        { return MsgTypeClStartInfo }
func (*ClVote) Type() MessageType             { return MsgTypeClVote }
func (*ClCallVote) Type() MessageType         { return MsgTypeClCallVote }

func (m *SvMotd) pack(p *Packer) error {
	p.AddString(m.Message)
	return nil
}

func (m *SvMotd) unpack(u *Unpacker) {
	m.Message = u.GetString()
}

func (m *SvBroadcast) pack(p *Packer) error {
	p.AddString(m.Message)
	return nil
}

func (m *SvBroadcast) unpack(u *Unpacker) {
	m.Message = u.GetString()
}

func (m *SvChat) pack(p *Packer) error {
	p.AddInt(m.Team)
	p.AddInt(m.ClientID)
	p.AddString(m.Message)
	return nil
}

func (m *SvChat) unpack(u *Unpacker) {
	m.Team = u.GetInt()
	m.ClientID = u.GetInt()
	m.Message = u.GetString()
}

func (m *SvTuneParams) pack(p *Packer) error {
	if len(m.Values) != TuneParamCount {
		return fmt.Errorf("tune params: got %d values, want %d", len(m.Values), TuneParamCount)
	}
	for _, v := range m.Values {
		p.AddInt(ToFixed(v))
	}
	return nil
}

func (m *SvTuneParams) unpack(u *Unpacker) {
	m.Values = make([]float64, TuneParamCount)
	for i := range m.Values {
		m.Values[i] = FromFixed(u.GetInt())
	}
}

func (*SvReadyToEnter) pack(*Packer) error { return nil }
func (*SvReadyToEnter) unpack(*Unpacker)   {}

func (*SvVoteClearOptions) pack(*Packer) error { return nil }
func (*SvVoteClearOptions) unpack(*Unpacker)   {}

func (m *SvVoteOption) pack(p *Packer) error {
	p.AddString(m.Command)
	return nil
}

func (m *SvVoteOption) unpack(u *Unpacker) {
	m.Command = u.GetString()
}

func (m *SvVoteSet) pack(p *Packer) error {
	p.AddInt(m.Timeout)
	p.AddString(m.Description)
	p.AddString(m.Command)
	return nil
}

func (m *SvVoteSet) unpack(u *Unpacker) {
	m.Timeout = u.GetInt()
	m.Description = u.GetString()
	m.Command = u.GetString()
}

func (m *SvVoteStatus) pack(p *Packer) error {
	p.AddString(m.Description)
	p.AddInt(m.Yes)
	p.AddInt(m.No)
	p.AddInt(m.Total)
	p.AddInt(m.TimeLeft)
	return nil
}

func (m *SvVoteStatus) unpack(u *Unpacker) {
	m.Description = u.GetString()
	m.Yes = u.GetInt()
	m.No = u.GetInt()
	m.Total = u.GetInt()
	m.TimeLeft = u.GetInt()
}

func (m *ClSay) pack(p *Packer) error {
	team := 0
	if m.Team {
		team = 1
	}
	p.AddInt(team)
	p.AddString(m.Message)
	return nil
}

func (m *ClSay) unpack(u *Unpacker) {
	m.Team = u.GetInt() != 0
	m.Message = u.GetString()
}

func (m *ClStartInfo) pack(p *Packer) error {
	p.AddString(m.Name)
	p.AddString(m.Skin)
	return nil
}

func (m *ClStartInfo) unpack(u *Unpacker) {
	m.Name = u.GetString()
	m.Skin = u.GetString()
}

func (m *ClVote) pack(p *Packer) error {
	p.AddInt(m.Vote)
	return nil
}

func (m *ClVote) unpack(u *Unpacker) {
	m.Vote = u.GetInt()
}

func (m *ClCallVote) pack(p *Packer) error {
	p.AddString(m.VoteType)
	p.AddString(m.Value)
	return nil
}

func (m *ClCallVote) unpack(u *Unpacker) {
	m.VoteType = u.GetString()
	m.Value = u.GetString()
}

func newMessage(t MessageType) (Message, bool) {
	switch t {
	case MsgTypeSvMotd:
		return &SvMotd{}, true
	case MsgTypeSvBroadcast:
		return &SvBroadcast{}, true
	case MsgTypeSvChat:
		return &SvChat{}, true
	case MsgTypeSvTuneParams:
		return &SvTuneParams{}, true
	case MsgTypeSvReadyToEnter:
		return &SvReadyToEnter{}, true
	case MsgTypeSvVoteClearOptions:
		return &SvVoteClearOptions{}, true
	case MsgTypeSvVoteOption:
		return &SvVoteOption{}, true
	case MsgTypeSvVoteSet:
		return &SvVoteSet{}, true
	case MsgTypeSvVoteStatus:
		return &SvVoteStatus{}, true
	case MsgTypeClSay:
		return &ClSay{}, true
	case MsgTypeClStartInfo:
		return &ClStartInfo{}, true
	case MsgTypeClVote:
		return &ClVote{}, true
	case MsgTypeClCallVote:
		return &ClCallVote{}, true
	default:
		return nil, false
	}
}

// Encode writes the message header (type shifted left, low bit clear for
// game messages) followed by the message fields.
func Encode(msg Message) ([]byte, error) {
	p := NewPacker()
	p.AddInt(int(msg.Type()) << 1)
	if err := msg.pack(p); err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", msg.Type(), err)
	}
	return p.Bytes(), nil
}

func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrShortPacket
	}

	u := NewUnpacker(data)
	header := u.GetInt()
	if err := u.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	if header&1 != 0 {
		return nil, fmt.Errorf("system message %d not handled here", header>>1)
	}

	t := MessageType(header >> 1)
	msg, ok := newMessage(t)
	if !ok {
		return nil, fmt.Errorf("unknown message type %d", int(t))
	}

	msg.unpack(u)
	if err := u.Err(); err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", t, err)
	}

	return msg, nil
}

// ToFixed converts a tuning value to the hundredths sent on the wire.
func ToFixed(v float64) int {
	if v < 0 {
		return int(v*100 - 0.5)
	}
	return int(v*100 + 0.5)
}

func FromFixed(i int) float64 {
	return float64(i) / 100
}
