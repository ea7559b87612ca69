package conformance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/puyobattle/internal/settings"
)

func TestCheckDefaults(t *testing.T) {
	c, err := NewChecker()
	require.NoError(t, err)

	rep, err := c.Check(settings.Default(0.123456789))
	require.NoError(t, err)
	assert.True(t, rep.OK(), "mismatches: %+v", rep.Mismatches)
	assert.Equal(t, rep.Wire, rep.PeerWire)
}

func TestCheckAwkwardFloats(t *testing.T) {
	c, err := NewChecker()
	require.NoError(t, err)

	values := []float64{0.1 + 0.2, 1.0 / 3, 1e-7, 5e-324, math.Nextafter(1, 0), 123456789.125}
	for _, v := range values {
		s := settings.Default(0)
		s.Gravity = v
		s.SoftDrop = v / 7
		s.Seed = math.Mod(v, 1)

		rep, err := c.Check(s)
		require.NoError(t, err)
		assert.True(t, rep.OK(), "value %v mismatches: %+v", v, rep.Mismatches)
	}
}

func TestCheckReportsDisagreement(t *testing.T) {
	lossy := `
function decodeSettings(wire) {
	var p = wire.split(' ');
	return {gamemode: p[0], gravity: Math.round(Number(p[1]) * 100) / 100, rows: Number(p[2]),
		cols: Number(p[3]), softDrop: Number(p[4]), numColours: Number(p[5]),
		targetPoints: Number(p[6]), marginTime: Number(p[7]), minChain: Number(p[8]), seed: Number(p[9])};
}
function encodeSettings(s) {
	return [s.gamemode, s.gravity, s.rows, s.cols, s.softDrop, s.numColours,
		s.targetPoints, s.marginTime, s.minChain, s.seed].join(' ');
}`
	c, err := NewCheckerFromSource(lossy)
	require.NoError(t, err)

	rep, err := c.Check(settings.Default(0.5))
	require.NoError(t, err)
	require.False(t, rep.OK())

	fields := map[string]bool{}
	for _, m := range rep.Mismatches {
		assert.Equal(t, settings.FieldGravity, m.Field)
		fields[m.Direction] = true
	}
	assert.True(t, fields["go->peer"])
	assert.True(t, fields["peer->go"])
}

func TestNewCheckerFromSourceErrors(t *testing.T) {
	_, err := NewCheckerFromSource("function (")
	assert.Error(t, err)

	_, err = NewCheckerFromSource("function decodeSettings(w) { return {}; }")
	assert.ErrorContains(t, err, "encodeSettings")
}

func TestCheckTimesOut(t *testing.T) {
	c, err := NewCheckerFromSource(`
function decodeSettings(w) { for (;;) {} }
function encodeSettings(s) { return ''; }`)
	require.NoError(t, err)

	_, err = c.Check(settings.Default(0.5))
	assert.Error(t, err)
}

func TestPeerFormat(t *testing.T) {
	c, err := NewChecker()
	require.NoError(t, err)

	out, err := c.PeerFormat(1e-7)
	require.NoError(t, err)
	assert.Equal(t, "1e-7", out)

	back, err := settings.ParseFloat(out)
	require.NoError(t, err)
	assert.Equal(t, 1e-7, back)
}

func TestCheckMissingFields(t *testing.T) {
	c, err := NewCheckerFromSource(`
function decodeSettings(w) { return {gamemode: 'Tsu'}; }
function encodeSettings(s) { return 'Tsu 0.036 12 6 0.27 4 70 96000 0 0.5'; }`)
	require.NoError(t, err)

	rep, err := c.Check(settings.Default(0.5))
	require.NoError(t, err)
	assert.Len(t, rep.Mismatches, 9)

	c, err = NewCheckerFromSource(`
function decodeSettings(w) { return undefined; }
function encodeSettings(s) { return ''; }`)
	require.NoError(t, err)
	_, err = c.Check(settings.Default(0.5))
	assert.Error(t, err)
}
