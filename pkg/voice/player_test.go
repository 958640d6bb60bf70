package voice

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPlayer(t *testing.T) {
	logger, _ := testLogger()

	p, err := FindPlayer("", lookPathFor("mpg123", "mpv"), &fakeRunner{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/mpg123", p.Path())
	assert.Equal(t, []string{"-q"}, p.args)

	p, err = FindPlayer("mpv", lookPathFor("mpg123", "mpv"), &fakeRunner{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/mpv", p.Path())

	p, err = FindPlayer("cvlc", lookPathFor("cvlc"), &fakeRunner{}, logger)
	require.NoError(t, err)
	assert.Empty(t, p.args)

	_, err = FindPlayer("", lookPathFor(), &fakeRunner{}, logger)
	assert.ErrorIs(t, err, ErrNoPlayer)

	_, err = FindPlayer("afplay", lookPathFor("mpv"), &fakeRunner{}, logger)
	assert.ErrorIs(t, err, ErrNoPlayer)
}

func TestProcessPlayerPlaysTemporaryFile(t *testing.T) {
	logger, _ := testLogger()
	var file string
	var content []byte

	runner := &fakeRunner{}
	runner.onRun = func(name string, args []string) {
		file = args[len(args)-1]
		content, _ = os.ReadFile(file)
	}

	p, err := FindPlayer("ffplay", lookPathFor("ffplay"), runner, logger)
	require.NoError(t, err)
	require.NoError(t, p.Play(context.Background(), []byte("ID3 fake mp3")))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/usr/bin/ffplay", calls[0].name)
	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}, calls[0].args[:4])
	assert.Equal(t, []byte("ID3 fake mp3"), content)

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err), "audio file is removed after playback")
}

func TestProcessPlayerSkipsEmptyAudio(t *testing.T) {
	logger, _ := testLogger()
	runner := &fakeRunner{}
	p, err := FindPlayer("", lookPathFor("afplay"), runner, logger)
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), nil))
	assert.Empty(t, runner.Calls())
	p.Stop()
}
