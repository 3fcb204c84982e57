package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackerIntEncoding(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"small positive", 5, []byte{0x05}},
		{"largest single byte", 63, []byte{0x3f}},
		{"needs extension", 64, []byte{0x80, 0x01}},
		{"minus one", -1, []byte{0x40}},
		{"minus sixty four", -64, []byte{0x7f}},
		{"minus sixty five", -65, []byte{0xc0, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacker()
			p.AddInt(tt.value)
			assert.Equal(t, tt.want, p.Bytes())

			u := NewUnpacker(p.Bytes())
			assert.Equal(t, tt.value, u.GetInt())
			require.NoError(t, u.Err())
			assert.Zero(t, u.Remaining())
		})
	}
}

func TestUnpackerLargeValues(t *testing.T) {
	p := NewPacker()
	values := []int{220000, -275000, 1 << 30, -(1 << 31)}
	for _, v := range values {
		p.AddInt(v)
	}

	u := NewUnpacker(p.Bytes())
	for _, want := range values {
		assert.Equal(t, want, u.GetInt())
	}
	require.NoError(t, u.Err())
}

func TestUnpackerShortPacket(t *testing.T) {
	u := NewUnpacker([]byte{0x80})
	assert.Equal(t, 0, u.GetInt())
	assert.ErrorIs(t, u.Err(), ErrShortPacket)

	u = NewUnpacker([]byte("no terminator"))
	assert.Equal(t, "", u.GetString())
	assert.ErrorIs(t, u.Err(), ErrShortPacket)
}

func TestGetStringSanitizesControlCharacters(t *testing.T) {
	p := NewPacker()
	p.AddString("kick\tme\nnow")

	u := NewUnpacker(p.Bytes())
	assert.Equal(t, "kick me now", u.GetString())
}

func TestDecodeCallVote(t *testing.T) {
	data, err := Encode(&ClCallVote{VoteType: "option", Value: "sv_map dm1"})
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)

	call, ok := msg.(*ClCallVote)
	require.True(t, ok, "expected *ClCallVote, got %T", msg)
	assert.Equal(t, "option", call.VoteType)
	assert.Equal(t, "sv_map dm1", call.Value)
}

func TestDecodeRejectsUnknownAndSystemMessages(t *testing.T) {
	p := NewPacker()
	p.AddInt(99 << 1)
	_, err := Decode(p.Bytes())
	assert.Error(t, err)

	p = NewPacker()
	p.AddInt(1<<1 | 1)
	_, err = Decode(p.Bytes())
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestTuneParamsFixedCount(t *testing.T) {
	_, err := Encode(&SvTuneParams{Values: []float64{1, 2, 3}})
	assert.Error(t, err)

	values := make([]float64, TuneParamCount)
	values[0] = 10
	values[2] = 0.5
	values[TuneParamCount-1] = 1

	data, err := Encode(&SvTuneParams{Values: values})
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, values, msg.(*SvTuneParams).Values)
}

func TestFixedPointRounding(t *testing.T) {
	assert.Equal(t, 95, ToFixed(0.95))
	assert.Equal(t, 1320, ToFixed(13.2))
	assert.Equal(t, -50, ToFixed(-0.5))
	assert.InDelta(t, 0.2, FromFixed(ToFixed(0.2)), 1e-9)
}
